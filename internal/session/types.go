// File: internal/session/types.go
package session

import (
	"context"
	"time"
)

// State is the position of a controller in the authentication state machine.
type State int

const (
	StateAnonymous State = iota
	StateRegistering
	StateAuthenticating
	StateCodePending
	StateVerifying
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateRegistering:
		return "registering"
	case StateAuthenticating:
		return "authenticating"
	case StateCodePending:
		return "code_pending"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Principal is the identity reported by the provider after a successful
// registration or sign-in. It is read-only to the controller.
type Principal struct {
	ID    string
	Email *string
	Phone *string
	Token *ProviderToken
}

// ProviderToken carries the provider-issued token material attached to a
// principal. It is absent for principals loaded outside a sign-in exchange.
type ProviderToken struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
}

// VerificationHandle correlates a sent phone code with a later submission.
// Exactly one handle is live per controller; a codeSent or timeout event
// replaces it atomically.
type VerificationHandle struct {
	ID       string
	Phone    string
	IssuedAt time.Time
}

// PhoneCodeOutcome tags the result of a phone-code request.
type PhoneCodeOutcome int

const (
	// PhoneCodeSent means a code is on its way; the handle awaits submission.
	PhoneCodeSent PhoneCodeOutcome = iota
	// PhoneAutoVerified means the platform completed verification without
	// user code entry; the principal is authenticated immediately.
	PhoneAutoVerified
	// PhoneCodeTimeout means the provider's auto-retrieval window elapsed and
	// a fresh handle replaces the previous one. Not an error.
	PhoneCodeTimeout
)

// PhoneCodeEvent is the single tagged result of a phone-code request,
// collapsing the provider's callback quartet (sent/auto-verified/timeout/
// failed) into one value; failure travels on the error return instead.
type PhoneCodeEvent struct {
	Outcome   PhoneCodeOutcome
	Handle    *VerificationHandle
	Principal *Principal
}

// ProfileRecord is the denormalized user metadata persisted once at
// registration and never updated by this flow.
type ProfileRecord struct {
	PrincipalID string
	Email       string
	Username    string
	Handle      string
	CreatedAt   time.Time
}

// IdentityProvider is the external identity service the controller mediates.
// Implementations must map their failure codes onto the package taxonomy.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (*Principal, error)
	SignIn(ctx context.Context, email, password string) (*Principal, error)
	SendPhoneCode(ctx context.Context, phoneNumber string) (*PhoneCodeEvent, error)
	VerifyPhoneCode(ctx context.Context, handle *VerificationHandle, code string) (*Principal, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// ProfileStore persists profile records keyed by principal ID.
type ProfileStore interface {
	Put(ctx context.Context, record *ProfileRecord) error
	GetByPrincipalID(ctx context.Context, principalID string) (*ProfileRecord, error)
}
