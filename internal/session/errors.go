// File: internal/session/errors.go
package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound indicates a sign-in against an email with no account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredential indicates the provider rejected the password.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrEmailAlreadyInUse indicates a registration attempt against a taken email.
	ErrEmailAlreadyInUse = errors.New("email already in use")
	// ErrInvalidCode indicates the submitted one-time code did not match.
	// The pending verification handle stays live so the caller may retry.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrCodeExpired indicates the verification handle itself expired; the
	// caller must request a fresh code.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrPhoneVerificationFailed indicates the provider could not issue a code.
	ErrPhoneVerificationFailed = errors.New("phone verification failed")
	// ErrNoPendingVerification indicates a code submission with no live handle.
	ErrNoPendingVerification = errors.New("no pending phone verification")
	// ErrOperationInProgress indicates a second credential operation was
	// attempted while one is still in flight on the same controller.
	ErrOperationInProgress = errors.New("another authentication operation is in progress")
	// ErrControllerClosed indicates the controller was disposed; results of
	// in-flight operations are suppressed, never applied.
	ErrControllerClosed = errors.New("session controller closed")
	// ErrProfileNotFound indicates no profile record exists for a principal.
	// Callers are expected to degrade gracefully, not fail.
	ErrProfileNotFound = errors.New("profile record not found")
)

// ValidationError reports a locally rejected input. It is returned before any
// provider call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a local validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProviderError wraps an identity-provider failure that has no more specific
// mapping in the taxonomy above.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity provider error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("identity provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError from an upstream failure.
func NewProviderError(message string, err error) *ProviderError {
	return &ProviderError{Message: message, Err: err}
}
