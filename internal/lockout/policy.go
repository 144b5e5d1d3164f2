package lockout

import (
	"fmt"
	"time"
)

const (
	DefaultMaxFailed       = 3
	DefaultLockoutDuration = 10 * time.Second
)

// Policy decides when repeated failures lock an account and for how long.
type Policy struct {
	MaxFailed       int
	LockoutDuration time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxFailed:       DefaultMaxFailed,
		LockoutDuration: DefaultLockoutDuration,
	}
}

func (p Policy) Validate() error {
	if p.MaxFailed <= 0 {
		return fmt.Errorf("%w: max_failed must be positive, got %d", ErrInvalidPolicy, p.MaxFailed)
	}
	if p.LockoutDuration <= 0 {
		return fmt.Errorf("%w: lockout_duration must be positive, got %s", ErrInvalidPolicy, p.LockoutDuration)
	}
	return nil
}
