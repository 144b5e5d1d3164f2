package lockout

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type EventKind string

const (
	EventLoginSuccess       EventKind = "login_success"
	EventLoginFailure       EventKind = "login_failure"
	EventLockoutApplied     EventKind = "lockout_applied"
	EventLockoutActive      EventKind = "lockout_active"
	EventManualUnlock       EventKind = "manual_unlock"
	EventBackendUnavailable EventKind = "backend_unavailable"
)

type Event struct {
	Kind      EventKind
	Username  string
	LockUntil time.Time
	Backend   string
	Err       error
}

// EventRecorder writes lockout events as structured log entries.
type EventRecorder struct {
	log *zap.Logger
}

func NewEventRecorder(log *zap.Logger) *EventRecorder {
	return &EventRecorder{log: log}
}

func (r *EventRecorder) Record(e Event) {
	fields := []zap.Field{
		zap.String("event", string(e.Kind)),
		zap.String("event_id", uuid.NewString()),
	}
	if e.Username != "" {
		fields = append(fields, zap.String("username", e.Username))
	}
	if outcome := e.Kind.outcome(); outcome != "" {
		fields = append(fields, zap.String("outcome", outcome))
	}
	if !e.LockUntil.IsZero() {
		fields = append(fields, zap.Time("lock_until", e.LockUntil))
	}
	if e.Backend != "" {
		fields = append(fields, zap.String("backend", e.Backend))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}

	if ce := r.log.Check(e.Kind.level(), e.Kind.message()); ce != nil {
		ce.Write(fields...)
	}
}

func (k EventKind) outcome() string {
	switch k {
	case EventLoginSuccess:
		return "success"
	case EventLoginFailure, EventLockoutApplied, EventLockoutActive:
		return "failure"
	}
	return ""
}

func (k EventKind) level() zapcore.Level {
	switch k {
	case EventLockoutApplied, EventBackendUnavailable:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// message keeps one text per kind; unknown and known usernames share
// "login failed".
func (k EventKind) message() string {
	switch k {
	case EventLoginSuccess:
		return "login succeeded"
	case EventLoginFailure:
		return "login failed"
	case EventLockoutApplied:
		return "lockout applied"
	case EventLockoutActive:
		return "account locked"
	case EventManualUnlock:
		return "account unlocked"
	case EventBackendUnavailable:
		return "lockout backend unavailable"
	}
	return string(k)
}
