package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dConf/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   string `json:"key,omitempty"`   // Used for: Set, Get, Delete, List (prefix)
	Value []byte `json:"value,omitempty"` // Used for: Set (request), Get (response)
	TTL   uint64 `json:"ttl,omitempty"`   // Used for: Set, time to live in milliseconds (0 = none)

	// Response only fields
	Ok    bool         `json:"ok,omitempty"`    // Used for: Get responses
	Code  uint64       `json:"code,omitempty"`  // store.RetCode of the error, 0 on success
	Err   string       `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message
	Nodes []store.Node `json:"nodes,omitempty"` // Used for: List responses
}

// AsError converts the error fields of a response back into a *store.Error.
// It returns nil if the response carries no error.
func (m *Message) AsError() error {
	if m.Err == "" && m.Code == uint64(store.RetCSuccess) {
		return nil
	}
	code := store.RetCode(m.Code)
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Err)
}

// TTLDuration returns the TTL field as a time.Duration
func (m *Message) TTLDuration() time.Duration {
	return time.Duration(m.TTL) * time.Millisecond
}

// setErr fills the error fields of a response
func (m *Message) setErr(err error) *Message {
	if err != nil {
		m.Err = err.Error()
		var storeErr *store.Error
		if errors.As(err, &storeErr) {
			m.Err = storeErr.Msg
		}
		m.Code = uint64(store.CodeOf(err))
	}
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request. Sub-millisecond TTLs are rounded up.
func NewSetRequest(key string, value []byte, ttl time.Duration) *Message {
	msg := &Message{
		MsgType: MsgTKVSet,
		Key:     key,
		Value:   value,
	}
	if ttl > 0 {
		msg.TTL = uint64((ttl + time.Millisecond - 1) / time.Millisecond)
	}
	return msg
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	return (&Message{MsgType: MsgTKVSet}).setErr(err)
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVDelete,
		Key:     key,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error) *Message {
	return (&Message{MsgType: MsgTKVDelete}).setErr(err)
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	return (&Message{
		MsgType: MsgTKVGet,
		Value:   value,
		Ok:      ok,
	}).setErr(err)
}

// NewListRequest creates a new List request for all children of prefix
func NewListRequest(prefix string) *Message {
	return &Message{
		MsgType: MsgTKVList,
		Key:     prefix,
	}
}

// NewListResponse creates a new List response
func NewListResponse(nodes []store.Node, err error) *Message {
	return (&Message{
		MsgType: MsgTKVList,
		Nodes:   nodes,
	}).setErr(err)
}

// NewPingRequest creates a new Ping request, used to probe an endpoint
func NewPingRequest() *Message {
	return &Message{MsgType: MsgTPing}
}

// NewPingResponse creates a new Ping response
func NewPingResponse() *Message {
	return &Message{MsgType: MsgTPing, Ok: true}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    uint64(code),
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTKVSet:
		return "set"
	case MsgTKVDelete:
		return "delete"
	case MsgTKVGet:
		return "get"
	case MsgTKVList:
		return "list"
	case MsgTPing:
		return "ping"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "set":
		*t = MsgTKVSet
	case "delete":
		*t = MsgTKVDelete
	case "get":
		*t = MsgTKVGet
	case "list":
		*t = MsgTKVList
	case "ping":
		*t = MsgTPing
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	case "unknown":
		*t = MsgTUnknown
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred
	MsgTPing                // Liveness probe

	// IStore operations

	MsgTKVSet    // Set a key-value pair (optionally with ttl)
	MsgTKVDelete // Delete a key-value pair
	MsgTKVGet    // Get a value by key
	MsgTKVList   // List the children of a prefix
)

// MaxMessageType is the highest defined message type
const MaxMessageType = MsgTKVList
