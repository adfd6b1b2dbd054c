package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies why a call failed. Every failed call carries exactly one kind.
type Kind string

const (
	// KindBuild means an argument could not be serialized. Nothing was sent.
	KindBuild Kind = "build"
	// KindTransport means the transport failed to deliver the request or
	// return a response.
	KindTransport Kind = "transport"
	// KindProtocol means the response was not a valid JSON-RPC envelope or
	// its payload did not match the expected type.
	KindProtocol Kind = "protocol"
	// KindRemote means the peer answered with a JSON-RPC error object.
	KindRemote Kind = "remote"
)

// Error is the failure returned by the client for a single call.
type Error struct {
	Kind    Kind
	Method  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Method != "" {
		prefix = fmt.Sprintf("%s: %s", prefix, e.Method)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// withMethod returns a copy of err tagged with the method name. Errors that
// are not *Error are classified as kind.
func withMethod(err error, kind Kind, method string) *Error {
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.Method = method
		return &cp
	}
	return &Error{Kind: kind, Method: method, Message: string(kind) + " failed", Cause: err}
}

// KindOf returns the kind of err, or "" when err is not a client error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// AsRPCError extracts the peer-reported error object from err.
func AsRPCError(err error) (*RPCError, bool) {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}

// RemoteCode returns the JSON-RPC error code carried by err, if any.
func RemoteCode(err error) (int, bool) {
	if rpcErr, ok := AsRPCError(err); ok {
		return rpcErr.Code, true
	}
	return 0, false
}

// Standard error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// RPCError is a JSON-RPC error object as sent by the peer.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewRPCError builds an error object. data is marshalled to JSON; a nil data
// omits the field.
func NewRPCError(code int, message string, data any) *RPCError {
	e := &RPCError{Code: code, Message: message}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			e.Data = raw
		}
	}
	return e
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// HasData reports whether the peer attached a non-null data member.
func (e *RPCError) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

func ErrParseError(data any) *RPCError {
	return NewRPCError(CodeParseError, "Parse error", data)
}

func ErrInvalidRequest(data any) *RPCError {
	return NewRPCError(CodeInvalidRequest, "Invalid Request", data)
}

func ErrMethodNotFound(data any) *RPCError {
	return NewRPCError(CodeMethodNotFound, "Method not found", data)
}

func ErrInvalidParams(data any) *RPCError {
	return NewRPCError(CodeInvalidParams, "Invalid params", data)
}

func ErrInternalError(data any) *RPCError {
	return NewRPCError(CodeInternalError, "Internal error", data)
}
