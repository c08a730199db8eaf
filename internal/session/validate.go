// File: internal/session/validate.go
package session

import (
	"errors"
	"strings"
)

// validateEmail accepts only addresses of the local@domain.tld form: exactly
// one "@", a non-empty local part, and a dot inside the domain part.
func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return &ValidationError{Field: "email", Reason: "must be of the form local@domain.tld"}
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return &ValidationError{Field: "email", Reason: "domain must contain a dot away from its edges"}
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Reason: "must not be empty"}
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	return nil
}

// isHandleExpired reports whether a phone verification failure invalidated
// the handle itself, requiring a fresh code request.
func isHandleExpired(err error) bool {
	return errors.Is(err, ErrCodeExpired)
}
