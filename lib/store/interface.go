package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the client-side contract for a single coordination store endpoint.
// Implementations talk to exactly one store instance; failover across several
// instances is handled by the failover package on top of this interface.
// All methods are safe for concurrent use.
type IStore interface {
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set inserts or updates a key–value pair. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) (err error)
	// Delete deletes a key–value pair. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) (err error)
	// ListChildren returns all nodes below prefix, ordered by key.
	// Keys are returned as full keys (including the prefix).
	ListChildren(ctx context.Context, prefix string) (nodes []Node, err error)
	// Close releases all resources held by the client.
	Close() (err error)
}

// Node is a single entry returned by ListChildren.
// Directory nodes carry no value (Dir is true, Value is empty).
type Node struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Dir   bool   `json:"dir,omitempty"`
}

// Factory opens a client for one endpoint address.
type Factory func(ctx context.Context, endpoint string) (IStore, error)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new StoreError with a formatted message.
func Errorf(code RetCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the return code carried by err, or RetCInternalError if err
// does not wrap an *Error. A nil error yields RetCSuccess.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

// IsPermanent reports whether err was produced by a store that processed the
// request and rejected it. Retrying such a request on another endpoint does
// not change the outcome.
func IsPermanent(err error) bool {
	switch CodeOf(err) {
	case RetCInvalidOperation, RetCUnsupportedOperation:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the store.
	RetCInvalidOperation                    // 3: Invalid operation (bad key, bad argument).
	RetCUnavailable                         // 4: The endpoint could not be reached or timed out.
)

// String returns the name of the return code.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}
