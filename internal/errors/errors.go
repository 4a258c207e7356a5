// Package errors defines the stable error taxonomy shared by the protocol
// server, the backends, and the CLI. Every failure that crosses the wire is
// classified with one of these codes so callers can react without parsing
// message text.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConfigInvalid indicates the manifest or tool configuration is unusable
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// PlatformUnsupported indicates the requested target platform is not enabled for the project
	PlatformUnsupported ErrorCode = "PLATFORM_UNSUPPORTED"
	// InvalidRequest indicates protocol misuse (wrong state, malformed params)
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// SourceDepUnsupported indicates a source dependency that is not the project itself
	SourceDepUnsupported ErrorCode = "SOURCE_DEP_UNSUPPORTED"
	// SpecInvalid indicates a dependency spec that cannot be parsed or converted
	SpecInvalid ErrorCode = "SPEC_INVALID"
	// ArtifactIO indicates a failure writing or removing build artifacts
	ArtifactIO ErrorCode = "ARTIFACT_IO"
	// EngineFailure indicates the resolve/build engine failed
	EngineFailure ErrorCode = "ENGINE_FAILURE"
	// Internal indicates an unexpected error
	Internal ErrorCode = "INTERNAL_ERROR"
)

// BuildError represents a classified backend error with an optional cause
// chain and structured details for diagnostics.
type BuildError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a BuildError without a cause.
func New(code ErrorCode, message string) *BuildError {
	return &BuildError{Code: code, Message: message}
}

// Newf creates a BuildError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *BuildError {
	return &BuildError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a BuildError that wraps an underlying cause.
// A nil cause yields the same result as New.
func Wrap(code ErrorCode, message string, cause error) *BuildError {
	return &BuildError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BuildError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *BuildError) WithDetails(details interface{}) *BuildError {
	e.Details = details
	return e
}

// Causes returns the messages of the cause chain, outermost first,
// excluding the error's own message.
func (e *BuildError) Causes() []string {
	var causes []string
	for err := e.cause; err != nil; err = stderrors.Unwrap(err) {
		causes = append(causes, errMessage(err))
	}
	return causes
}

// errMessage returns an error's own message when it is a BuildError,
// avoiding the repeated "[CODE] msg: cause" nesting in cause chains.
func errMessage(err error) string {
	if be, ok := err.(*BuildError); ok {
		return fmt.Sprintf("[%s] %s", be.Code, be.Message)
	}
	return err.Error()
}

// CodeOf extracts the error code from an error chain.
// Errors that carry no BuildError classify as Internal.
func CodeOf(err error) ErrorCode {
	var be *BuildError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return Internal
}

// AsBuildError returns the outermost BuildError in the chain, wrapping
// unclassified errors as Internal so every failure has a stable shape.
func AsBuildError(err error) *BuildError {
	if err == nil {
		return nil
	}
	var be *BuildError
	if stderrors.As(err, &be) {
		return be
	}
	return Wrap(Internal, "unexpected error", err)
}

// Is reports whether any error in the chain matches target.
// Re-exported so callers need only this package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in the chain matching target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
