package settings

import (
	"errors"
	"fmt"

	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("settings")

var (
	// ErrInvalidConfig is wrapped by all option validation errors.
	ErrInvalidConfig = errors.New("invalid settings configuration")
	// ErrNotFound is returned by the typed getters without default when a key is missing.
	ErrNotFound = errors.New("setting not found")
	// ErrConversion is matched (errors.Is) by every *ConversionError.
	ErrConversion = errors.New("cannot convert setting")
	// ErrClosed is returned by writes on closed settings.
	ErrClosed = errors.New("settings are closed")
	// ErrEmptyName is returned by writes with an empty setting name.
	ErrEmptyName = errors.New("setting name must not be empty")
)

// ConversionError is returned when a stored value does not parse as the requested type.
type ConversionError struct {
	Key   string
	Value string
	Type  string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s %q: value %q is not a valid %s: %v", ErrConversion, e.Key, e.Value, e.Type, e.Err)
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------
// Error Sink
// --------------------------------------------------------------------------

// ErrorHandler receives every failure that is reported instead of raised: failed
// background refreshes and failed write-through calls.
type ErrorHandler interface {
	OnError(err error)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(err error)

func (f ErrorHandlerFunc) OnError(err error) { f(err) }

// LogErrorHandler logs every reported error through the settings logger.
type LogErrorHandler struct{}

func (LogErrorHandler) OnError(err error) {
	log.Errorf("%v", err)
}
