package lockout

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/config"
)

const defaultProbeTimeout = 5 * time.Second

// Connector tries to establish one backend.
type Connector interface {
	Name() string
	Connect(ctx context.Context) (Store, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc struct {
	Backend string
	Fn      func(ctx context.Context) (Store, error)
}

func (c ConnectorFunc) Name() string {
	return c.Backend
}

func (c ConnectorFunc) Connect(ctx context.Context) (Store, error) {
	return c.Fn(ctx)
}

// Selector binds the process to the first backend that answers, in
// priority order. The in-memory store is always the last resort.
type Selector struct {
	candidates   []Connector
	probeTimeout time.Duration
	events       *EventRecorder
	log          *zap.Logger
}

func NewSelector(candidates []Connector, probeTimeout time.Duration, events *EventRecorder, log *zap.Logger) *Selector {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Selector{
		candidates:   candidates,
		probeTimeout: probeTimeout,
		events:       events,
		log:          log,
	}
}

// DefaultConnectors returns the Redis, SQLite and memory candidates in
// priority order.
func DefaultConnectors(cfg *config.AppConfig, log *zap.Logger) []Connector {
	timeout := cfg.Auth.OperationTimeout
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return []Connector{
		ConnectorFunc{
			Backend: BackendRedis,
			Fn: func(ctx context.Context) (Store, error) {
				return OpenRedis(ctx, &cfg.Redis, timeout)
			},
		},
		ConnectorFunc{
			Backend: BackendSQLite,
			Fn: func(ctx context.Context) (Store, error) {
				return OpenSQLite(ctx, cfg.SQLite.Path, log)
			},
		},
		ConnectorFunc{
			Backend: BackendMemory,
			Fn: func(context.Context) (Store, error) {
				return NewMemoryStore(), nil
			},
		},
	}
}

// Select probes the candidates in order and returns the first store that
// connects and answers a ping.
func (s *Selector) Select(ctx context.Context) Store {
	for _, candidate := range s.candidates {
		store, err := s.probe(ctx, candidate)
		if err != nil {
			s.log.Warn("lockout backend rejected",
				zap.String("backend", candidate.Name()),
				zap.Error(err))
			s.events.Record(Event{
				Kind:    EventBackendUnavailable,
				Backend: candidate.Name(),
				Err:     err,
			})
			continue
		}

		s.log.Info("lockout backend selected", zap.String("backend", store.Name()))
		return store
	}

	s.log.Warn("no lockout backend answered, using process memory")
	return NewMemoryStore()
}

func (s *Selector) probe(ctx context.Context, candidate Connector) (Store, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	store, err := candidate.Connect(probeCtx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("connector returned no store")
	}
	if err := store.Ping(probeCtx); err != nil {
		closeStore(store)
		return nil, err
	}
	return store, nil
}

func closeStore(store Store) {
	if closer, ok := store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
