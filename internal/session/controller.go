// File: internal/session/controller.go
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const minPasswordLength = 6

// Controller owns the authentication state machine for one client and
// mediates every call to the identity provider and profile store.
//
// Credential operations are single-flight: a second Register/SignIn/phone
// operation while one is pending returns ErrOperationInProgress rather than
// interleaving, so the principal eventually reported as current is always the
// one the last completed operation produced.
type Controller struct {
	provider IdentityProvider
	profiles ProfileStore
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	principal *Principal
	handle    *VerificationHandle
	inFlight  bool
	closed    bool
}

// NewController creates a controller in the ANONYMOUS state.
func NewController(provider IdentityProvider, profiles ProfileStore, logger *zap.Logger) *Controller {
	return &Controller{
		provider: provider,
		profiles: profiles,
		logger:   logger,
		state:    StateAnonymous,
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentPrincipal returns the last provider-reported principal, or nil when
// anonymous. Pure read, no side effects.
func (c *Controller) CurrentPrincipal() *Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

// Close disposes the controller. In-flight operations finish without mutating
// state and report ErrControllerClosed to their callers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.principal = nil
	c.handle = nil
	c.state = StateAnonymous
}

// Register creates a new account with the identity provider and best-effort
// writes the profile record. A profile store failure is logged and does not
// fail the registration: the principal already exists and remains valid.
func (c *Controller) Register(ctx context.Context, email, password, username string) (*Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(username) == "" {
		return nil, &ValidationError{Field: "username", Reason: "must not be empty"}
	}

	if err := c.begin(StateRegistering); err != nil {
		return nil, err
	}

	principal, err := c.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, c.settle(nil, err)
	}

	// A flow closed during the provider call must not write anything either.
	c.mu.Lock()
	if c.closed {
		c.inFlight = false
		c.mu.Unlock()
		return nil, ErrControllerClosed
	}
	c.mu.Unlock()

	record := &ProfileRecord{
		PrincipalID: principal.ID,
		Email:       email,
		Username:    strings.TrimSpace(username),
		CreatedAt:   time.Now().UTC(),
	}
	if perr := c.profiles.Put(ctx, record); perr != nil {
		// Non-fatal: the principal was created, registration stands.
		c.logger.Warn("Profile record write failed after registration",
			zap.String("principalID", principal.ID),
			zap.Error(perr),
		)
	}

	if err := c.settle(principal, nil); err != nil {
		return nil, err
	}
	c.logger.Info("Registration completed", zap.String("principalID", principal.ID))
	return principal, nil
}

// SignIn exchanges an email/password pair for an authenticated principal.
func (c *Controller) SignIn(ctx context.Context, email, password string) (*Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if err := c.begin(StateAuthenticating); err != nil {
		return nil, err
	}

	principal, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, c.settle(nil, err)
	}
	if err := c.settle(principal, nil); err != nil {
		return nil, err
	}
	c.logger.Info("Sign-in completed", zap.String("principalID", principal.ID))
	return principal, nil
}

// RequestPhoneCode starts the phone OTP sub-flow. The result carries one of
// three tagged outcomes: code sent (handle retained for SubmitPhoneCode),
// auto-verified (authenticated immediately), or auto-retrieval timeout (the
// fresh handle replaces the previous one).
func (c *Controller) RequestPhoneCode(ctx context.Context, phoneNumber string) (*PhoneCodeEvent, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, &ValidationError{Field: "phone_number", Reason: "must not be empty"}
	}

	if err := c.begin(StateCodePending); err != nil {
		return nil, err
	}

	event, err := c.provider.SendPhoneCode(ctx, phoneNumber)
	if err != nil {
		return nil, c.settle(nil, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.closed {
		return nil, ErrControllerClosed
	}
	switch event.Outcome {
	case PhoneAutoVerified:
		c.principal = event.Principal
		c.handle = nil
		c.state = StateAuthenticated
	case PhoneCodeSent, PhoneCodeTimeout:
		c.handle = event.Handle
		c.state = StateCodePending
	}
	return event, nil
}

// SubmitPhoneCode exchanges the live verification handle and a user-entered
// code for an authenticated principal. A wrong code leaves the handle intact
// for retry; an expired handle is cleared and a fresh code must be requested.
func (c *Controller) SubmitPhoneCode(ctx context.Context, code string) (*Principal, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &ValidationError{Field: "code", Reason: "must not be empty"}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrControllerClosed
	}
	if c.handle == nil {
		c.mu.Unlock()
		return nil, ErrNoPendingVerification
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrOperationInProgress
	}
	handle := c.handle
	c.inFlight = true
	c.state = StateVerifying
	c.mu.Unlock()

	principal, err := c.provider.VerifyPhoneCode(ctx, handle, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.closed {
		return nil, ErrControllerClosed
	}
	if err != nil {
		if isHandleExpired(err) {
			c.principal = nil
			c.handle = nil
			c.state = StateAnonymous
		} else {
			c.state = StateCodePending
		}
		return nil, err
	}
	c.principal = principal
	c.handle = nil
	c.state = StateAuthenticated
	c.logger.Info("Phone verification completed", zap.String("principalID", principal.ID))
	return principal, nil
}

// RequestPasswordReset asks the provider to send a reset email. An unknown
// address resolves to success so the endpoint cannot be used to enumerate
// accounts; the provider implementation is responsible for that collapse.
func (c *Controller) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	c.mu.Unlock()

	return c.provider.SendPasswordReset(ctx, email)
}

// SignOut clears the local principal reference and returns the controller to
// ANONYMOUS from any state. Idempotent.
func (c *Controller) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principal = nil
	c.handle = nil
	if !c.closed {
		c.state = StateAnonymous
	}
}

// FetchProfile loads the profile record for a principal. ErrProfileNotFound
// is an expected outcome (the write at registration is best-effort) and
// callers should fall back rather than fail.
func (c *Controller) FetchProfile(ctx context.Context, principalID string) (*ProfileRecord, error) {
	if strings.TrimSpace(principalID) == "" {
		return nil, &ValidationError{Field: "principal_id", Reason: "must not be empty"}
	}
	return c.profiles.GetByPrincipalID(ctx, principalID)
}

// begin claims the single-flight slot and moves to the transient state.
func (c *Controller) begin(next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if c.inFlight {
		return ErrOperationInProgress
	}
	c.inFlight = true
	c.state = next
	return nil
}

// settle releases the single-flight slot and applies the outcome of a
// register/sign-in attempt, unless the controller was closed mid-flight.
// ANONYMOUS always means no principal and no live handle, so a failed
// attempt clears both even when an earlier operation had succeeded.
func (c *Controller) settle(principal *Principal, opErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.closed {
		return ErrControllerClosed
	}
	if opErr != nil {
		c.principal = nil
		c.handle = nil
		c.state = StateAnonymous
		return opErr
	}
	c.principal = principal
	c.handle = nil
	c.state = StateAuthenticated
	return nil
}
