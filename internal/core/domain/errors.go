// Package domain defines the error taxonomy shared by the ssess core.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "SS-STOR-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Crypt Errors (CRYP)
// ============================================================================

var (
	// ErrUnknownHashAlgorithm indicates the configured hash is not supported.
	ErrUnknownHashAlgorithm = NewDomainError("SS-CRYP-1001", "unknown hash algorithm")

	// ErrUnknownEncryptionAlgorithm indicates the configured cipher is not supported.
	ErrUnknownEncryptionAlgorithm = NewDomainError("SS-CRYP-1002", "unknown encryption algorithm")

	// ErrUnableToDecrypt indicates the envelope is malformed or fails authentication.
	ErrUnableToDecrypt = NewDomainError("SS-CRYP-4001", "unable to decrypt session data")

	// ErrUnableToHash indicates the application secret could not be digested.
	ErrUnableToHash = NewDomainError("SS-CRYP-5001", "unable to hash")

	// ErrUnableToGenerateRandomness indicates the nonce source failed.
	ErrUnableToGenerateRandomness = NewDomainError("SS-CRYP-5002", "unable to generate randomness")

	// ErrUnableToEncrypt indicates the cipher could not be set up for a key.
	ErrUnableToEncrypt = NewDomainError("SS-CRYP-5003", "unable to encrypt session data")
)

// ============================================================================
// Storage Errors (STOR)
// ============================================================================

var (
	// ErrUnknownBackend indicates the configured storage backend name is not known.
	ErrUnknownBackend = NewDomainError("SS-STOR-1001", "unknown storage backend")

	// ErrSessionNotFound indicates no record exists for the identifier.
	ErrSessionNotFound = NewDomainError("SS-STOR-4040", "session not found")

	// ErrUnableToFetch indicates a record exists but could not be read.
	ErrUnableToFetch = NewDomainError("SS-STOR-5001", "unable to fetch session")

	// ErrUnableToSave indicates a record could not be written.
	ErrUnableToSave = NewDomainError("SS-STOR-5002", "unable to save session")

	// ErrUnableToDelete indicates one or more records could not be removed.
	ErrUnableToDelete = NewDomainError("SS-STOR-5003", "unable to delete session")

	// ErrUnableToSetupStorage indicates a backend could not be opened.
	ErrUnableToSetupStorage = NewDomainError("SS-STOR-5100", "unable to set up storage")

	// ErrDirectoryNotReadable indicates the storage directory cannot be listed or read.
	ErrDirectoryNotReadable = NewDomainError("SS-STOR-5101", "storage directory not readable")

	// ErrDirectoryNotWritable indicates the storage directory cannot be written.
	ErrDirectoryNotWritable = NewDomainError("SS-STOR-5102", "storage directory not writable")

	// ErrUnableToCreateDirectory indicates the storage directory could not be created.
	ErrUnableToCreateDirectory = NewDomainError("SS-STOR-5103", "unable to create storage directory")
)

// ============================================================================
// Security Errors (SEC)
// ============================================================================

// ErrInsecureSettings indicates the host runtime is configured in a way that
// permits session fixation or id leakage.
var ErrInsecureSettings = NewDomainError("SS-SEC-4000", "insecure session settings")

// The variants carry ErrInsecureSettings as their cause, so
// errors.Is(err, ErrInsecureSettings) matches any of them.
var (
	ErrUseCookiesDisabled     = newVariant(ErrInsecureSettings, "SS-SEC-4001", "use_cookies must be enabled")
	ErrUseOnlyCookiesDisabled = newVariant(ErrInsecureSettings, "SS-SEC-4002", "use_only_cookies must be enabled")
	ErrUseTransSIDEnabled     = newVariant(ErrInsecureSettings, "SS-SEC-4003", "use_trans_sid must be disabled")
	ErrUseStrictModeDisabled  = newVariant(ErrInsecureSettings, "SS-SEC-4004", "use_strict_mode must be enabled")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrLockTimeout indicates Open gave up waiting for the session lock.
	ErrLockTimeout = NewDomainError("SS-SESS-4080", "timed out waiting for session lock")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("SS-SYS-5000", "internal server error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("SS-SYS-4000", "bad request")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = NewDomainError("SS-SYS-4040", "not found")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("SS-SYS-4290", "too many requests")

	// ErrInvalidArgument indicates an invalid command or config argument.
	ErrInvalidArgument = NewDomainError("SS-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SS-ARG-1002", "missing required argument")
)

func newVariant(parent *DomainError, code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Cause: parent}
}
