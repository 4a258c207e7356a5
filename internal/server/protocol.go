// Package server exposes a backend over JSON-RPC 2.0. Messages are
// line-delimited JSON; one session serves one stream and holds the
// initialize-once state machine.
package server

import (
	"encoding/json"

	"pixibuild/internal/errors"
)

// Version is the JSON-RPC protocol version stamped on every message.
const Version = "2.0"

// Message represents a JSON-RPC 2.0 message.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return e.Message
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// ServerError carries classified backend failures; the diagnostic
	// rides in the error data.
	ServerError = -32000
)

// ErrorData is the structured diagnostic attached to backend failures so
// callers can react to the stable code instead of parsing message text.
type ErrorData struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details interface{}      `json:"details,omitempty"`
	Causes  []string         `json:"causes,omitempty"`
}

// NewErrorMessage creates a new error response message
func NewErrorMessage(id interface{}, code int, message string, data interface{}) *Message {
	return &Message{
		JSONRPC: Version,
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// NewResultMessage creates a new result response message
func NewResultMessage(id interface{}, result interface{}) *Message {
	return &Message{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	}
}

// IsRequest checks if the message is a request
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.ID != nil
}

// IsNotification checks if the message is a notification
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// toRPCError classifies a backend error for the wire: protocol misuse
// maps to the standard invalid-request code, everything else to the
// server error code with the full diagnostic as data.
func toRPCError(err error) *RPCError {
	be := errors.AsBuildError(err)
	code := ServerError
	if be.Code == errors.InvalidRequest {
		code = InvalidRequest
	}
	return &RPCError{
		Code:    code,
		Message: be.Message,
		Data: &ErrorData{
			Code:    be.Code,
			Message: be.Message,
			Details: be.Details,
			Causes:  be.Causes(),
		},
	}
}
