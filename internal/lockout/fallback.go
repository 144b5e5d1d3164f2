package lockout

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

const DefaultOperationTimeout = 5 * time.Second

// FallbackStore binds the process to one selected backend and applies each
// operation to a process-local shadow when that backend fails. A successful
// primary read is merged with the shadow so state recorded during an outage
// is never lost in the direction of unlocking; a successful primary write or
// reset discards the shadow entry.
type FallbackStore struct {
	primary Store
	shadow  *MemoryStore
	timeout time.Duration
	events  *EventRecorder
	log     *zap.Logger
}

func NewFallbackStore(primary Store, timeout time.Duration, events *EventRecorder, log *zap.Logger) *FallbackStore {
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return &FallbackStore{
		primary: primary,
		shadow:  NewMemoryStore(),
		timeout: timeout,
		events:  events,
		log:     log,
	}
}

func (f *FallbackStore) Name() string {
	return f.primary.Name()
}

func (f *FallbackStore) Primary() Store {
	return f.primary
}

func (f *FallbackStore) GetStatus(ctx context.Context, username string) (Status, error) {
	opCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	status, err := f.primary.GetStatus(opCtx, username)
	if err != nil {
		f.degrade("get status", username, err)
		return f.shadow.GetStatus(ctx, username)
	}

	if shadow, ok := f.shadow.lookup(username); ok {
		status = mergeStatus(status, shadow)
	}
	return status, nil
}

func (f *FallbackStore) SetStatus(ctx context.Context, username string, status Status) error {
	opCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.primary.SetStatus(opCtx, username, status); err != nil {
		f.degrade("set status", username, err)
		return f.shadow.SetStatus(ctx, username, status)
	}
	return f.shadow.Reset(ctx, username)
}

func (f *FallbackStore) Reset(ctx context.Context, username string) error {
	opCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.primary.Reset(opCtx, username); err != nil {
		f.degrade("reset", username, err)
	}
	return f.shadow.Reset(ctx, username)
}

func (f *FallbackStore) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.primary.Ping(opCtx)
}

func (f *FallbackStore) Close() error {
	if closer, ok := f.primary.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (f *FallbackStore) degrade(op, username string, err error) {
	if !IsTransient(err) {
		f.log.Error("unexpected lockout backend error",
			zap.String("backend", f.primary.Name()),
			zap.String("op", op),
			zap.Error(err))
	}
	f.events.Record(Event{
		Kind:     EventBackendUnavailable,
		Username: username,
		Backend:  f.primary.Name(),
		Err:      err,
	})
}

func mergeStatus(a, b Status) Status {
	merged := a
	if b.FailedCount > merged.FailedCount {
		merged.FailedCount = b.FailedCount
	}
	if b.LockUntil.After(merged.LockUntil) {
		merged.LockUntil = b.LockUntil
	}
	return merged
}

var _ Store = (*FallbackStore)(nil)
