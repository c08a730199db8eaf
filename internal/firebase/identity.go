package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"authflow_backend/internal/config"
	"authflow_backend/internal/session"
)

// IdentityService implements session.IdentityProvider on top of the Google
// Identity Toolkit API. The Admin SDK deliberately does not expose the
// client-side credential exchanges (password sign-in, phone OTP, reset
// emails); those go through the relying-party endpoints with the web API key.
type IdentityService struct {
	rp     *identitytoolkit.RelyingpartyService
	logger *zap.Logger
}

var _ session.IdentityProvider = (*IdentityService)(nil)

// NewIdentityService creates the Identity Toolkit client.
func NewIdentityService(cfg *config.Config, logger *zap.Logger) (*IdentityService, error) {
	if cfg.FirebaseWebAPIKey == "" {
		return nil, fmt.Errorf("firebase web API key is required for identity toolkit")
	}
	svc, err := identitytoolkit.NewService(context.Background(), option.WithAPIKey(cfg.FirebaseWebAPIKey))
	if err != nil {
		logger.Error("Failed to initialize Identity Toolkit service", zap.Error(err))
		return nil, fmt.Errorf("error initializing identity toolkit service: %w", err)
	}
	return &IdentityService{
		rp:     svc.Relyingparty,
		logger: logger.Named("IdentityToolkit"),
	}, nil
}

// CreateAccount registers a new email/password account.
func (s *IdentityService) CreateAccount(ctx context.Context, email, password string) (*session.Principal, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}
	resp, err := s.rp.SignupNewUser(req).Context(ctx).Do()
	if err != nil {
		s.logger.Warn("SignupNewUser failed", zap.Error(err))
		return nil, mapIdentityError(err)
	}
	return &session.Principal{
		ID:    resp.LocalId,
		Email: optional(resp.Email),
		Token: &session.ProviderToken{
			IDToken:   resp.IdToken,
			ExpiresIn: time.Duration(resp.ExpiresIn) * time.Second,
		},
	}, nil
}

// SignIn verifies an email/password pair.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*session.Principal, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}
	resp, err := s.rp.VerifyPassword(req).Context(ctx).Do()
	if err != nil {
		s.logger.Warn("VerifyPassword failed", zap.Error(err))
		return nil, mapIdentityError(err)
	}
	return &session.Principal{
		ID:    resp.LocalId,
		Email: optional(resp.Email),
		Token: &session.ProviderToken{
			IDToken:      resp.IdToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
		},
	}, nil
}

// SendPhoneCode asks the provider to text a one-time code. The REST transport
// has no silent auto-verification channel (that is a device-platform feature),
// so the outcome here is always code-sent; the session package models the
// full outcome set for providers that do.
func (s *IdentityService) SendPhoneCode(ctx context.Context, phoneNumber string) (*session.PhoneCodeEvent, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartySendVerificationCodeRequest{
		PhoneNumber: phoneNumber,
	}
	resp, err := s.rp.SendVerificationCode(req).Context(ctx).Do()
	if err != nil {
		s.logger.Warn("SendVerificationCode failed", zap.Error(err))
		mapped := mapIdentityError(err)
		var perr *session.ProviderError
		if errors.As(mapped, &perr) {
			return nil, fmt.Errorf("%w: %v", session.ErrPhoneVerificationFailed, err)
		}
		return nil, mapped
	}
	return &session.PhoneCodeEvent{
		Outcome: session.PhoneCodeSent,
		Handle: &session.VerificationHandle{
			ID:       resp.SessionInfo,
			Phone:    phoneNumber,
			IssuedAt: time.Now(),
		},
	}, nil
}

// VerifyPhoneCode exchanges a handle and code for a signed-in principal.
func (s *IdentityService) VerifyPhoneCode(ctx context.Context, handle *session.VerificationHandle, code string) (*session.Principal, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPhoneNumberRequest{
		Code:        code,
		SessionInfo: handle.ID,
	}
	resp, err := s.rp.VerifyPhoneNumber(req).Context(ctx).Do()
	if err != nil {
		s.logger.Warn("VerifyPhoneNumber failed", zap.Error(err))
		return nil, mapIdentityError(err)
	}
	return &session.Principal{
		ID:    resp.LocalId,
		Phone: optional(resp.PhoneNumber),
		Token: &session.ProviderToken{
			IDToken:      resp.IdToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
		},
	}, nil
}

// SendPasswordReset issues a reset email. An unknown address is reported as
// success so the operation cannot be used to probe which emails have accounts.
func (s *IdentityService) SendPasswordReset(ctx context.Context, email string) error {
	req := &identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}
	if _, err := s.rp.GetOobConfirmationCode(req).Context(ctx).Do(); err != nil {
		mapped := mapIdentityError(err)
		if errors.Is(mapped, session.ErrAccountNotFound) {
			s.logger.Debug("Password reset requested for unknown email, reporting success")
			return nil
		}
		s.logger.Warn("GetOobConfirmationCode failed", zap.Error(err))
		return mapped
	}
	return nil
}

// mapIdentityError translates Identity Toolkit failure codes into the session
// taxonomy. The server reports codes as the leading token of the error
// message, e.g. "EMAIL_EXISTS" or "INVALID_PASSWORD : ...".
func mapIdentityError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return session.NewProviderError("identity toolkit request failed", err)
	}

	code := gerr.Message
	if idx := strings.IndexAny(code, " :"); idx > 0 {
		code = code[:idx]
	}

	switch code {
	case "EMAIL_EXISTS":
		return session.ErrEmailAlreadyInUse
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return session.ErrAccountNotFound
	case "INVALID_PASSWORD", "INVALID_EMAIL", "INVALID_LOGIN_CREDENTIALS":
		return session.ErrInvalidCredential
	case "INVALID_CODE":
		return session.ErrInvalidCode
	case "SESSION_EXPIRED", "INVALID_SESSION_INFO", "CODE_EXPIRED":
		return session.ErrCodeExpired
	default:
		return session.NewProviderError(gerr.Message, gerr)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
