// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the fast-path client.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrTransportClosed   = fmt.Errorf("transport is closed")
	ErrBufferPoolClosed  = fmt.Errorf("buffer pool is closed")
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
	ErrOperationTimeout  = fmt.Errorf("operation timeout")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrAlreadyExists     = fmt.Errorf("resource already exists")
	ErrNotFound          = fmt.Errorf("resource not found")

	// ErrQueueFull is the transient taxon: the caller's ring has no space
	// this poll cycle. Retry after draining more events; it never indicates
	// protocol or connection failure.
	ErrQueueFull = fmt.Errorf("ring queue full")

	// ErrNotOpen names the condition of a flow or listener whose
	// open/accept handshake has not completed. No operation in this module
	// returns it; operations do not check a flow's or listener's status.
	ErrNotOpen = fmt.Errorf("connection not open")

	// ErrClosed is returned by the transmit operations (flow TxAlloc,
	// TxAlloc2, TxClose) once the flow's send side is closed (TXEOS set).
	// Operations do not check for CLOSE_REQUESTED or CLOSED status.
	ErrClosed = fmt.Errorf("connection closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeInternal
	// ErrCodeQueueFull is the transient queue-full taxon (spec.md §7 taxon 1).
	ErrCodeQueueFull
	// ErrCodeProtocol is the protocol-level failure taxon (spec.md §7 taxon 2):
	// a negative status delivered through an event (open/accept/move failed).
	ErrCodeProtocol
	// ErrCodeFatal is the fatal taxon (spec.md §7 taxon 3): bootstrap or
	// shared-memory corruption the caller cannot recover from.
	ErrCodeFatal
)

// ProtocolError carries the negative status and the listener/connection
// handle delivered alongside an EvListenOpen/EvConnOpen/EvListenAccept/
// EvConnMoved failure event (spec.md §7 taxon 2).
type ProtocolError struct {
	*Error
	Status int16
	Handle uint32
}

// NewProtocolError builds a ProtocolError for a negative-status event.
func NewProtocolError(op string, status int16, handle uint32) *ProtocolError {
	return &ProtocolError{
		Error:  NewError(ErrCodeProtocol, fmt.Sprintf("%s failed: status=%d", op, status)),
		Status: status,
		Handle: handle,
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
