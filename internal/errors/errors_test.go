package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")

	err := Wrap(EngineFailure, "resolve failed", cause)

	if err.Code != EngineFailure {
		t.Errorf("Code = %v, want %v", err.Code, EngineFailure)
	}
	if err.Message != "resolve failed" {
		t.Errorf("Message = %q, want %q", err.Message, "resolve failed")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestBuildError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      ConfigInvalid,
			message:   "failed to parse manifest",
			cause:     errors.New("unexpected token"),
			wantParts: []string{"CONFIG_INVALID", "failed to parse manifest", "unexpected token"},
		},
		{
			name:      "without cause",
			code:      PlatformUnsupported,
			message:   "platform 'win-64' is not supported",
			cause:     nil,
			wantParts: []string{"PLATFORM_UNSUPPORTED", "platform 'win-64' is not supported"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(tt.code, tt.message, tt.cause)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestBuildError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(Internal, "something went wrong", cause)

	unwrapped := err.Unwrap()
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Test nil cause
	errNoCause := New(InvalidRequest, "server is not initialized")
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestBuildError_WithDetails(t *testing.T) {
	err := New(SpecInvalid, "invalid version constraint")
	details := map[string]string{"spec": ">=bogus"}

	result := err.WithDetails(details)

	// Check that it returns the same error (for chaining)
	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}

	// Check details are set
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestBuildError_Causes(t *testing.T) {
	root := errors.New("disk full")
	mid := fmt.Errorf("writing recipe: %w", root)
	err := Wrap(ArtifactIO, "failed to write rendered recipe", mid)

	causes := err.Causes()
	if len(causes) != 2 {
		t.Fatalf("len(Causes()) = %d, want 2", len(causes))
	}
	if !strings.Contains(causes[0], "writing recipe") {
		t.Errorf("causes[0] = %q, want to contain %q", causes[0], "writing recipe")
	}
	if causes[1] != "disk full" {
		t.Errorf("causes[1] = %q, want %q", causes[1], "disk full")
	}
}

func TestBuildError_CausesNested(t *testing.T) {
	inner := New(SpecInvalid, "bad constraint")
	outer := Wrap(ConfigInvalid, "manifest rejected", inner)

	causes := outer.Causes()
	if len(causes) != 1 {
		t.Fatalf("len(Causes()) = %d, want 1", len(causes))
	}
	// Nested BuildErrors contribute their own message, not the full chain text.
	if causes[0] != "[SPEC_INVALID] bad constraint" {
		t.Errorf("causes[0] = %q, want %q", causes[0], "[SPEC_INVALID] bad constraint")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", New(EngineFailure, "boom"), EngineFailure},
		{"wrapped", fmt.Errorf("context: %w", New(SpecInvalid, "bad")), SpecInvalid},
		{"plain", errors.New("plain"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsBuildError(t *testing.T) {
	if AsBuildError(nil) != nil {
		t.Error("AsBuildError(nil) should be nil")
	}

	be := New(ArtifactIO, "write failed")
	if got := AsBuildError(fmt.Errorf("wrapped: %w", be)); got != be {
		t.Errorf("AsBuildError() = %v, want the wrapped BuildError", got)
	}

	plain := errors.New("plain")
	got := AsBuildError(plain)
	if got.Code != Internal {
		t.Errorf("Code = %v, want %v", got.Code, Internal)
	}
	if got.Unwrap() != plain {
		t.Error("unclassified errors should keep the original as cause")
	}
}

func TestErrorCodes(t *testing.T) {
	// Ensure all error codes are unique
	codes := []ErrorCode{
		ConfigInvalid,
		PlatformUnsupported,
		InvalidRequest,
		SourceDepUnsupported,
		SpecInvalid,
		ArtifactIO,
		EngineFailure,
		Internal,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		// Ensure each code is a non-empty string
		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
