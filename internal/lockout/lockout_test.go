package lockout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/elskow/authguard/internal/accounts"
	"github.com/elskow/authguard/internal/config"
	"github.com/elskow/authguard/internal/credential"
)

var errBackendDown = errors.New("connection refused")

func newTestLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newTestVerifier() *credential.Verifier {
	return credential.NewVerifier(1000)
}

func newTestRegistry(t *testing.T, verifier *credential.Verifier) *accounts.Registry {
	list, err := accounts.FromSeed([]config.SeedUser{
		{Username: "admin", Password: "123456"},
		{Username: "user", Password: "password"},
	}, verifier)
	require.NoError(t, err)

	registry, err := accounts.NewRegistry(list)
	require.NoError(t, err)
	return registry
}

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore wraps a MemoryStore and fails every call while down is set.
type flakyStore struct {
	mu    sync.RWMutex
	inner *MemoryStore
	down  bool
	err   error
	calls int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{inner: NewMemoryStore()}
}

func (s *flakyStore) SetDown(down bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
	s.err = err
}

func (s *flakyStore) failure(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if !s.down {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	return transient("flaky", op, errBackendDown)
}

func (s *flakyStore) Name() string {
	return "flaky"
}

func (s *flakyStore) GetStatus(ctx context.Context, username string) (Status, error) {
	if err := s.failure("get status"); err != nil {
		return Status{}, err
	}
	return s.inner.GetStatus(ctx, username)
}

func (s *flakyStore) SetStatus(ctx context.Context, username string, status Status) error {
	if err := s.failure("set status"); err != nil {
		return err
	}
	return s.inner.SetStatus(ctx, username, status)
}

func (s *flakyStore) Reset(ctx context.Context, username string) error {
	if err := s.failure("reset"); err != nil {
		return err
	}
	return s.inner.Reset(ctx, username)
}

func (s *flakyStore) Ping(ctx context.Context) error {
	return s.failure("ping")
}

type engineFixture struct {
	engine *Engine
	store  Store
	clock  *testClock
	logs   *observer.ObservedLogs
}

func newTestEngine(t *testing.T, store Store, policy Policy) *engineFixture {
	log, logs := newTestLogger()
	verifier := newTestVerifier()
	clock := newTestClock()

	engine, err := NewEngine(store, newTestRegistry(t, verifier), verifier, policy,
		NewEventRecorder(log), log, WithClock(clock.Now))
	require.NoError(t, err)

	return &engineFixture{engine: engine, store: store, clock: clock, logs: logs}
}

type testLogs struct {
	*observer.ObservedLogs
}

// count returns how many entries carry the given event kind.
func (l *testLogs) count(kind EventKind) int {
	n := 0
	for _, k := range eventKinds(l.ObservedLogs) {
		if k == string(kind) {
			n++
		}
	}
	return n
}

func eventKinds(logs *observer.ObservedLogs) []string {
	var kinds []string
	for _, entry := range logs.All() {
		if kind, ok := entry.ContextMap()["event"].(string); ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
