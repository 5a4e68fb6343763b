package health

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by all validation errors of this package.
var ErrInvalidConfig = errors.New("invalid health configuration")

// Default values of the retry policy
const (
	DefaultMaxRetries        = 10
	DefaultMaxFailsToDisable = 3
	DefaultFailWindow        = 30 * time.Second
)

// Policy holds the retry and disable rules shared by the tracker and the failover dispatcher.
// A Policy is a value type and is never modified after it was passed to NewTracker.
type Policy struct {
	// MaxRetries is the number of attempts per logical operation before the dispatcher gives up
	MaxRetries int
	// MaxFailsToDisable is the number of in-window failures an endpoint may have before it is
	// marked unavailable (the endpoint is disabled on failure MaxFailsToDisable+1)
	MaxFailsToDisable int
	// FailWindow is the time a failure stays "recent"
	FailWindow time.Duration
}

// DefaultPolicy returns the policy with all default values.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        DefaultMaxRetries,
		MaxFailsToDisable: DefaultMaxFailsToDisable,
		FailWindow:        DefaultFailWindow,
	}
}

// Validate checks the policy for values that would make the dispatcher unusable.
func (p Policy) Validate() error {
	if p.MaxRetries < 1 {
		return fmt.Errorf("%w: max retries must be at least 1, got %d", ErrInvalidConfig, p.MaxRetries)
	}
	if p.MaxFailsToDisable < 0 {
		return fmt.Errorf("%w: max fails to disable must not be negative, got %d", ErrInvalidConfig, p.MaxFailsToDisable)
	}
	if p.FailWindow <= 0 {
		return fmt.Errorf("%w: fail window must be positive, got %s", ErrInvalidConfig, p.FailWindow)
	}
	return nil
}
