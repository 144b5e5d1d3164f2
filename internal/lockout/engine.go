package lockout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/accounts"
	"github.com/elskow/authguard/internal/credential"
)

type AuthResult struct {
	OK bool
}

// Engine runs the lockout state machine. An account is Open while its
// lock_until is zero or not after now, and Locked otherwise; the state is
// derived from the stored Status on every attempt.
type Engine struct {
	store    Store
	registry *accounts.Registry
	verifier *credential.Verifier
	events   *EventRecorder
	log      *zap.Logger
	now      func() time.Time
	keys     *keyedMutex

	policy   Policy
	policyMu sync.RWMutex
}

type EngineOption func(*Engine)

// WithClock replaces time.Now; tests use it to step past lock windows.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(
	store Store,
	registry *accounts.Registry,
	verifier *credential.Verifier,
	policy Policy,
	events *EventRecorder,
	log *zap.Logger,
	opts ...EngineOption,
) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:    store,
		registry: registry,
		verifier: verifier,
		events:   events,
		log:      log,
		now:      time.Now,
		keys:     newKeyedMutex(),
		policy:   policy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AttemptLogin never fails for a wrong password, an unknown user or a
// locked account; all three are OK=false.
func (e *Engine) AttemptLogin(ctx context.Context, username, password string) AuthResult {
	unlock := e.keys.Lock(username)
	defer unlock()

	policy := e.Policy()

	status, err := e.store.GetStatus(ctx, username)
	if err != nil {
		e.log.Error("failed to read lockout status, denying attempt",
			zap.String("username", username),
			zap.Error(err))
		return AuthResult{OK: false}
	}
	status = e.sanitize(username, status)

	if status.Locked(e.now()) {
		e.events.Record(Event{
			Kind:      EventLockoutActive,
			Username:  username,
			LockUntil: status.LockUntil,
		})
		return AuthResult{OK: false}
	}

	account, known := e.registry.Lookup(username)
	if !known {
		e.verifier.Dummy(password)
		e.recordFailure(ctx, username, status, policy)
		return AuthResult{OK: false}
	}

	if !e.verifier.Verify(password, account.Salt, account.PasswordHash) {
		e.recordFailure(ctx, username, status, policy)
		return AuthResult{OK: false}
	}

	if err := e.store.Reset(ctx, username); err != nil {
		e.log.Error("failed to reset lockout status",
			zap.String("username", username),
			zap.Error(err))
	}
	e.events.Record(Event{Kind: EventLoginSuccess, Username: username})
	return AuthResult{OK: true}
}

// recordFailure counts one failure and locks the account once the count
// reaches the policy threshold. A new lock stores a zero count.
func (e *Engine) recordFailure(ctx context.Context, username string, status Status, policy Policy) {
	failed := status.FailedCount + 1

	next := Status{FailedCount: failed}
	locking := failed >= policy.MaxFailed
	if locking {
		next = Status{LockUntil: e.now().Add(policy.LockoutDuration)}
	}

	if err := e.store.SetStatus(ctx, username, next); err != nil {
		e.log.Error("failed to persist lockout status",
			zap.String("username", username),
			zap.Error(err))
	}

	e.events.Record(Event{Kind: EventLoginFailure, Username: username})
	if locking {
		e.events.Record(Event{
			Kind:      EventLockoutApplied,
			Username:  username,
			LockUntil: next.LockUntil,
		})
	}
}

func (e *Engine) sanitize(username string, status Status) Status {
	if status.FailedCount < 0 {
		e.log.Error("negative failed count in lockout storage, clamping to zero",
			zap.String("username", username),
			zap.Int("failed_count", status.FailedCount))
		status.FailedCount = 0
	}
	return status
}

// AdminUnlock clears all attempt state for username. Unlocking an account
// that was never locked, or does not exist, is a no-op.
func (e *Engine) AdminUnlock(ctx context.Context, username string) error {
	unlock := e.keys.Lock(username)
	defer unlock()

	if err := e.store.Reset(ctx, username); err != nil {
		return err
	}
	e.events.Record(Event{Kind: EventManualUnlock, Username: username})
	return nil
}

// Status reports the stored state of username and whether it is locked now.
func (e *Engine) Status(ctx context.Context, username string) (Status, bool, error) {
	status, err := e.store.GetStatus(ctx, username)
	if err != nil {
		return Status{}, false, err
	}
	status = e.sanitize(username, status)
	return status, status.Locked(e.now()), nil
}

func (e *Engine) ListAccounts() []accounts.Account {
	return e.registry.List()
}

func (e *Engine) Policy() Policy {
	e.policyMu.RLock()
	defer e.policyMu.RUnlock()
	return e.policy
}

// ConfigurePolicy swaps the policy at runtime. Meant for demos and tests.
func (e *Engine) ConfigurePolicy(maxFailed int, lockoutDuration time.Duration) error {
	policy := Policy{MaxFailed: maxFailed, LockoutDuration: lockoutDuration}
	if err := policy.Validate(); err != nil {
		return err
	}

	e.policyMu.Lock()
	e.policy = policy
	e.policyMu.Unlock()

	e.log.Info("[demo] lockout policy changed",
		zap.Int("max_failed", maxFailed),
		zap.Duration("lockout_duration", lockoutDuration))
	return nil
}

func (e *Engine) Backend() string {
	return e.store.Name()
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// keyedMutex serializes work per key; entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
