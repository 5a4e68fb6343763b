package failover

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted is matched (errors.Is) by every *ExhaustedError.
	ErrExhausted = errors.New("retries exhausted")
	// ErrClosed is returned by operations on a closed dispatcher.
	ErrClosed = errors.New("dispatcher is closed")
	// ErrInvalidConfig is wrapped by construction errors.
	ErrInvalidConfig = errors.New("invalid failover configuration")
)

// ExhaustedError is returned when an operation failed on every attempt.
// It wraps the error of the last attempt.
type ExhaustedError struct {
	Op       string // name of the logical operation (get, set, ...)
	Attempts int    // number of endpoints contacted
	Last     error  // error of the last attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", e.Op, ErrExhausted, e.Attempts, e.Last)
}

// Is makes errors.Is(err, ErrExhausted) work
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
