// File: internal/auth/flow_errors.go
package auth

import (
	"errors"
	"net/http"

	"authflow_backend/internal/common"
	"authflow_backend/internal/session"
)

// mapFlowError translates session flow failures into API errors. Account-not-
// found and wrong-password collapse to one message here so the login endpoint
// cannot be used to enumerate accounts; the distinction stays available to
// callers of the session package itself.
func mapFlowError(err error) *common.APIError {
	var ve *session.ValidationError
	if errors.As(err, &ve) {
		return common.NewValidationAPIError(map[string]string{ve.Field: ve.Reason})
	}

	switch {
	case errors.Is(err, session.ErrEmailAlreadyInUse):
		return common.ErrConflict.WithDetails("An account with this email already exists.")
	case errors.Is(err, session.ErrAccountNotFound), errors.Is(err, session.ErrInvalidCredential):
		return common.ErrUnauthorized.WithDetails("Invalid email or password.")
	case errors.Is(err, session.ErrInvalidCode):
		return common.NewAPIError(http.StatusUnauthorized, "INVALID_CODE", "The verification code is incorrect. You may retry with the same code request.")
	case errors.Is(err, session.ErrCodeExpired):
		return common.NewAPIError(http.StatusUnauthorized, "CODE_EXPIRED", "The verification session expired. Request a new code.")
	case errors.Is(err, session.ErrNoPendingVerification):
		return common.NewAPIError(http.StatusConflict, "NO_PENDING_VERIFICATION", "No phone verification is pending for this flow.")
	case errors.Is(err, session.ErrPhoneVerificationFailed):
		return common.ErrBadGateway.WithDetails("Could not send a verification code to this number.")
	case errors.Is(err, session.ErrOperationInProgress):
		return common.NewAPIError(http.StatusConflict, "OPERATION_IN_PROGRESS", "Another authentication operation is already in progress for this flow.")
	case errors.Is(err, session.ErrControllerClosed):
		return common.NewAPIError(http.StatusGone, "FLOW_EXPIRED", "This authentication flow has expired. Start again.")
	case errors.Is(err, session.ErrProfileNotFound):
		return common.ErrNotFound.WithDetails("No profile record exists for this account.")
	}

	var perr *session.ProviderError
	if errors.As(err, &perr) {
		return common.ErrBadGateway.WithDetails("The identity provider rejected the request.")
	}
	return common.ErrInternalServer.WithDetails(err.Error())
}
