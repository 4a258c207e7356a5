package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"pixibuild/internal/protocol"
)

// Session is the state machine of one protocol stream. It starts
// uninitialized; a successful initialize binds a backend and the session
// stays in that state for its whole lifetime. Requests may be handled
// concurrently, so the state sits behind a read-write lock: initialize
// takes the write side, operations hold the read side for their full
// duration so none overlaps an in-flight initialize.
type Session struct {
	factory protocol.Factory
	logger  *slog.Logger

	mu      sync.RWMutex
	backend protocol.Backend
	caps    protocol.BackendCapabilities
}

// NewSession creates an uninitialized session dispatching to the factory.
func NewSession(factory protocol.Factory, logger *slog.Logger) *Session {
	return &Session{factory: factory, logger: logger}
}

// Initialized reports whether a backend is bound.
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend != nil
}

// Handle dispatches one request to the session. The result is nil
// exactly when the error is non-nil.
func (s *Session) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, *RPCError) {
	switch method {
	case protocol.MethodInitialize:
		return s.initialize(ctx, params)
	case protocol.MethodCondaGetMetadata:
		return s.getMetadata(ctx, params)
	case protocol.MethodCondaBuild:
		return s.build(ctx, params)
	default:
		return nil, &RPCError{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("method not found: %s", method),
		}
	}
}

func (s *Session) initialize(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	var p protocol.InitializeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend != nil {
		return nil, &RPCError{
			Code:    InvalidRequest,
			Message: "the server is already initialized",
		}
	}

	backend, result, err := s.factory.Initialize(ctx, &p)
	if err != nil {
		return nil, toRPCError(err)
	}

	s.backend = backend
	s.caps = result.Capabilities
	s.logger.Info("Session initialized",
		"manifest", p.ManifestPath,
	)
	return result, nil
}

func (s *Session) getMetadata(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	var p protocol.CondaMetadataParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if rpcErr := s.require(s.caps.ProvidesCondaMetadata, protocol.MethodCondaGetMetadata); rpcErr != nil {
		return nil, rpcErr
	}
	result, err := s.backend.GetCondaMetadata(ctx, &p)
	if err != nil {
		return nil, toRPCError(err)
	}
	return result, nil
}

func (s *Session) build(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	var p protocol.CondaBuildParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if rpcErr := s.require(s.caps.ProvidesCondaBuild, protocol.MethodCondaBuild); rpcErr != nil {
		return nil, rpcErr
	}
	result, err := s.backend.BuildConda(ctx, &p)
	if err != nil {
		return nil, toRPCError(err)
	}
	return result, nil
}

// require checks the sequencing preconditions of an operation under the
// read lock: a bound backend that advertises the capability.
func (s *Session) require(capability bool, method string) *RPCError {
	if s.backend == nil {
		return &RPCError{
			Code:    InvalidRequest,
			Message: "the server is not initialized; call initialize first",
		}
	}
	if !capability {
		return &RPCError{
			Code:    InvalidRequest,
			Message: fmt.Sprintf("the backend does not provide %s", method),
		}
	}
	return nil
}

func decodeParams(params json.RawMessage, v interface{}) *RPCError {
	if len(params) == 0 {
		return &RPCError{Code: InvalidParams, Message: "params are required"}
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &RPCError{
			Code:    InvalidParams,
			Message: fmt.Sprintf("failed to parse params: %v", err),
		}
	}
	return nil
}
