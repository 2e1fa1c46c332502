// ABOUTME: Error taxonomy for JSON-RPC calls: transport, protocol, and application errors.
// ABOUTME: Transport errors are retryable; protocol and application errors are not.

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyMethod indicates Call was invoked without a method name.
var ErrEmptyMethod = errors.New("rpc: method must not be empty")

// TransportError indicates the HTTP layer failed before a valid JSON-RPC
// response was obtained: connection refused, timeout, non-2xx status without
// a JSON-RPC error body, or an unreadable body. Transport errors are the only
// class the ask service may retry.
type TransportError struct {
	Server string
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc transport (%s, %s): %v", e.Server, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates the peer violated JSON-RPC 2.0 framing: a mismatched
// correlation id or an unexpected jsonrpc version. Never retried, since the
// peer is misbehaving rather than transiently unavailable.
type ProtocolError struct {
	Server string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("rpc protocol violation (%s): %s", e.Server, e.Reason)
}

// ApplicationError wraps the error object returned by the JSON-RPC peer.
// Deterministic for given arguments, so never retried.
type ApplicationError struct {
	Server  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("rpc application error (%s): %d %s", e.Server, e.Code, e.Message)
}

// IsTransient reports whether err is a transport-classified failure that a
// caller may retry once.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
