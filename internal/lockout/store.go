package lockout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrBackendUnavailable = errors.New("lockout backend unavailable")
	ErrInvalidPolicy      = errors.New("invalid lockout policy")
)

// Status is the persisted attempt state of one username. A zero LockUntil
// means the account is not locked.
type Status struct {
	FailedCount int
	LockUntil   time.Time
}

// Locked reports whether the status holds an unexpired lock at now.
func (s Status) Locked(now time.Time) bool {
	return !s.LockUntil.IsZero() && now.Before(s.LockUntil)
}

// Store persists per-username attempt state. Missing records read as the
// zero Status. Implementations return a *TransientError for I/O failures.
type Store interface {
	Name() string
	GetStatus(ctx context.Context, username string) (Status, error)
	SetStatus(ctx context.Context, username string, status Status) error
	Reset(ctx context.Context, username string) error
	Ping(ctx context.Context) error
}

// TransientError marks a storage failure the caller may recover from by
// falling back to another backend.
type TransientError struct {
	Backend string
	Op      string
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

func transient(backend, op string, err error) error {
	return &TransientError{Backend: backend, Op: op, Err: err}
}

// IsTransient reports whether err came from an unavailable backend.
func IsTransient(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// epochSeconds encodes t as float seconds since the Unix epoch; zero time is 0.
func epochSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMicro()) / 1e6
}

func fromEpochSeconds(secs float64) time.Time {
	if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}
	}
	return time.UnixMicro(int64(math.Round(secs * 1e6)))
}
