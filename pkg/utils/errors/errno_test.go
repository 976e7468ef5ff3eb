package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service  int
		category int
		sequence int
		expected int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{0, 7, 0, 7000},
		{30, 1, 1, 3001001},
		{30, 8, 1, 3008001},
		{90, 10, 1, 9010001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.service, tt.category, tt.sequence), func(t *testing.T) {
			got := MakeCode(tt.service, tt.category, tt.sequence)
			if got != tt.expected {
				t.Errorf("MakeCode(%d, %d, %d) = %d, want %d",
					tt.service, tt.category, tt.sequence, got, tt.expected)
			}
		})
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		code             int
		expectedService  int
		expectedCategory int
		expectedSequence int
	}{
		{0, 0, 0, 0},
		{1001, 0, 1, 1},
		{3001001, 30, 1, 1},
		{3008001, 30, 8, 1},
		{9010001, 90, 10, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			service, category, sequence := ParseCode(tt.code)
			if service != tt.expectedService || category != tt.expectedCategory || sequence != tt.expectedSequence {
				t.Errorf("ParseCode(%d) = (%d, %d, %d), want (%d, %d, %d)",
					tt.code, service, category, sequence,
					tt.expectedService, tt.expectedCategory, tt.expectedSequence)
			}
		})
	}
}

func TestErrnoHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Errno
		want int
	}{
		{"missing content", ErrMissingContent, http.StatusBadRequest},
		{"missing params", ErrMissingParams, http.StatusBadRequest},
		{"no substantial content", ErrNoSubstantialContent, http.StatusBadRequest},
		{"no valid vectors", ErrNoValidVectors, http.StatusBadRequest},
		{"dimension mismatch", ErrDimensionMismatch, http.StatusBadRequest},
		{"retrieval failed", ErrRetrievalFailed, http.StatusInternalServerError},
		{"unhandled failure", ErrUnhandledFailure, http.StatusInternalServerError},
		{"provider unavailable", ErrProviderUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrnoWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrRetrievalFailed.WithCause(cause)

	if err.Code != ErrRetrievalFailed.Code {
		t.Errorf("WithCause changed code: %d", err.Code)
	}
	if !errors.Is(err, ErrRetrievalFailed) {
		t.Error("errors.Is should match the original errno")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should unwrap to the cause")
	}
	// The original must stay untouched.
	if ErrRetrievalFailed.cause != nil {
		t.Error("WithCause mutated the registered errno")
	}
}

func TestErrnoWithMessage(t *testing.T) {
	err := ErrInvalidParam.WithMessage("question is required")
	if err.MessageEN != "question is required" {
		t.Errorf("MessageEN = %q", err.MessageEN)
	}
	if ErrInvalidParam.MessageEN != "Invalid parameter" {
		t.Error("WithMessage mutated the registered errno")
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrMissingParams.Code)
	if !ok {
		t.Fatal("ErrMissingParams not registered")
	}
	if e != ErrMissingParams {
		t.Error("Lookup returned a different errno")
	}

	if _, ok := Lookup(9999999); ok {
		t.Error("Lookup should miss for unknown code")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}
	if got := FromError(ErrMissingContent); got != ErrMissingContent {
		t.Error("FromError should pass an Errno through")
	}
	plain := errors.New("boom")
	got := FromError(plain)
	if got.Code != ErrInternal.Code {
		t.Errorf("FromError wrapped with code %d, want %d", got.Code, ErrInternal.Code)
	}
	if !errors.Is(got, plain) {
		t.Error("FromError should keep the cause")
	}
}

func TestClientServerClassification(t *testing.T) {
	if !IsClientError(ErrNoValidVectors.Code) {
		t.Error("NoValidVectors should classify as client error")
	}
	if !IsServerError(ErrRetrievalFailed.Code) {
		t.Error("RetrievalFailed should classify as server error")
	}
	if IsServerError(ErrMissingContent.Code) {
		t.Error("MissingContent should not classify as server error")
	}
}
