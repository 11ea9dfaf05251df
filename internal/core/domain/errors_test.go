package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("SS-TEST-1000", "test message"),
			expected: "[SS-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("SS-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[SS-TEST-1001] test message: extra info",
		},
		{
			name:     "error with cause",
			err:      NewDomainError("SS-TEST-1002", "test message").WithCause(fmt.Errorf("disk full")),
			expected: "[SS-TEST-1002] test message: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("SS-TEST-1000", "message 1")
	err2 := NewDomainError("SS-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("SS-TEST-1001", "message 1") // Different code

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("SS-TEST-1000", "wrapper").WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := NewDomainError("SS-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetails(t *testing.T) {
	original := NewDomainError("SS-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}
	if withDetails.Code != original.Code || withDetails.Message != original.Message {
		t.Error("WithDetails should preserve code and message")
	}
}

func TestDomainError_WithCause(t *testing.T) {
	original := NewDomainError("SS-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	if original.Cause != nil {
		t.Error("WithCause should not modify original error")
	}
	if withCause.Cause != cause {
		t.Errorf("Cause = %v, want %v", withCause.Cause, cause)
	}
	if withCause.Code != original.Code {
		t.Errorf("Code = %q, want %q", withCause.Code, original.Code)
	}
}

func TestDomainError_JoinedCauses(t *testing.T) {
	first := fmt.Errorf("remove a: permission denied")
	second := fmt.Errorf("remove b: busy")
	err := ErrUnableToDelete.WithCause(errors.Join(first, second))

	if !errors.Is(err, ErrUnableToDelete) {
		t.Error("aggregated error should match ErrUnableToDelete")
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Error("aggregated error should expose every cause")
	}
}

func TestInsecureSettingsVariants(t *testing.T) {
	variants := []*DomainError{
		ErrUseCookiesDisabled,
		ErrUseOnlyCookiesDisabled,
		ErrUseTransSIDEnabled,
		ErrUseStrictModeDisabled,
	}

	for _, v := range variants {
		t.Run(v.Code, func(t *testing.T) {
			if !errors.Is(v, ErrInsecureSettings) {
				t.Errorf("%s should match ErrInsecureSettings", v.Code)
			}
			if !errors.Is(v, v) {
				t.Errorf("%s should match itself", v.Code)
			}
			for _, other := range variants {
				if other != v && errors.Is(v, other) {
					t.Errorf("%s should not match %s", v.Code, other.Code)
				}
			}
		})
	}
}

func TestIsDomainError(t *testing.T) {
	err := ErrSessionNotFound

	if !IsDomainError(err, "SS-STOR-4040") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(err, "SS-STOR-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if !IsDomainError(err, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "SS-STOR-4040") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrSessionNotFound)
	if !IsDomainError(wrapped, "SS-STOR-4040") {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrSessionNotFound, "SS-STOR-4040"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrUnableToDecrypt), "SS-CRYP-4001"},
		{"variant reports own code", ErrUseTransSIDEnabled, "SS-SEC-4003"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		{ErrUnknownHashAlgorithm, "SS-CRYP-1001"},
		{ErrUnknownEncryptionAlgorithm, "SS-CRYP-1002"},
		{ErrUnableToDecrypt, "SS-CRYP-4001"},
		{ErrUnableToHash, "SS-CRYP-5001"},
		{ErrUnableToGenerateRandomness, "SS-CRYP-5002"},
		{ErrUnableToEncrypt, "SS-CRYP-5003"},

		{ErrUnknownBackend, "SS-STOR-1001"},
		{ErrSessionNotFound, "SS-STOR-4040"},
		{ErrUnableToFetch, "SS-STOR-5001"},
		{ErrUnableToSave, "SS-STOR-5002"},
		{ErrUnableToDelete, "SS-STOR-5003"},
		{ErrUnableToSetupStorage, "SS-STOR-5100"},
		{ErrDirectoryNotReadable, "SS-STOR-5101"},
		{ErrDirectoryNotWritable, "SS-STOR-5102"},
		{ErrUnableToCreateDirectory, "SS-STOR-5103"},

		{ErrInsecureSettings, "SS-SEC-4000"},
		{ErrUseCookiesDisabled, "SS-SEC-4001"},
		{ErrUseOnlyCookiesDisabled, "SS-SEC-4002"},
		{ErrUseTransSIDEnabled, "SS-SEC-4003"},
		{ErrUseStrictModeDisabled, "SS-SEC-4004"},

		{ErrLockTimeout, "SS-SESS-4080"},

		{ErrInternalServer, "SS-SYS-5000"},
		{ErrBadRequest, "SS-SYS-4000"},
		{ErrNotFound, "SS-SYS-4040"},
		{ErrRateLimited, "SS-SYS-4290"},
		{ErrInvalidArgument, "SS-ARG-1001"},
		{ErrMissingArgument, "SS-ARG-1002"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
			if seen[tt.code] {
				t.Errorf("duplicate error code %s", tt.code)
			}
			seen[tt.code] = true
		})
	}
}

func TestErrorChaining(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := ErrSessionNotFound.
		WithDetails("identifier: 9f86d0").
		WithCause(cause)

	if err.Code != "SS-STOR-4040" {
		t.Errorf("Code = %q, want %q", err.Code, "SS-STOR-4040")
	}
	if err.Details != "identifier: 9f86d0" {
		t.Errorf("Details = %q", err.Details)
	}
	if err.Cause != cause {
		t.Error("Cause should be preserved")
	}
	if !errors.Is(err, ErrSessionNotFound) {
		t.Error("errors.Is should work after chaining")
	}

	var de *DomainError
	if !errors.As(err, &de) || de.Code != "SS-STOR-4040" {
		t.Error("errors.As should recover the DomainError")
	}
}
