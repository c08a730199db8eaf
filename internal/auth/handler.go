// File: internal/auth/handler.go
package auth

import (
	"errors"
	"strings"

	"authflow_backend/internal/common"
	"authflow_backend/internal/firebase"
	"authflow_backend/internal/middleware"
	"authflow_backend/internal/session"
	"authflow_backend/internal/shared"
	"authflow_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// FlowIDHeader correlates a client with its server-side flow controller.
// Clients echo it back on the requests that continue a multi-step flow
// (phone verification in particular).
const FlowIDHeader = "X-Auth-Flow-ID"

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	flows        *session.Manager
	userService  *user.Service
	tokenService shared.TokenService
	fbService    *firebase.Service
	logger       *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(
	flows *session.Manager,
	userService *user.Service,
	tokenService shared.TokenService,
	fbService *firebase.Service,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		flows:        flows,
		userService:  userService,
		tokenService: tokenService,
		fbService:    fbService,
		logger:       logger,
	}
}

// RegisterRoutes sets up the routes for authentication operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/phone/send-code", h.sendPhoneCode)
		authGroup.POST("/phone/verify", h.verifyPhoneCode)
		authGroup.POST("/password-reset", h.passwordReset)
		authGroup.POST("/firebase", h.firebaseLogin)
		authGroup.POST("/refresh-token", h.refreshToken)
		authGroup.POST("/logout", authMW, h.logout)
		authGroup.GET("/me", authMW, h.me)
	}
}

// flow resolves the controller for this request. A known flow ID continues
// its flow; anything else starts a fresh one and announces its ID in the
// response header.
func (h *Handler) flow(c *gin.Context) (*session.Controller, error) {
	if id := c.GetHeader(FlowIDHeader); id != "" {
		if ctrl, ok := h.flows.Get(id); ok {
			c.Header(FlowIDHeader, id)
			return ctrl, nil
		}
	}
	id, ctrl, err := h.flows.Create()
	if err != nil {
		return nil, err
	}
	c.Header(FlowIDHeader, id)
	return ctrl, nil
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return false
	}
	return true
}

// issueTokens mirrors the principal locally and mints the API session tokens.
func (h *Handler) issueTokens(c *gin.Context, principal *session.Principal, username, method string) (gin.H, error) {
	dbUser, _, err := h.userService.GetOrCreateFromPrincipal(c.Request.Context(), principal, username, method)
	if err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := h.tokenService.GenerateAccessToken(dbUser)
	if err != nil {
		h.logger.Error("Failed to generate access token", zap.Error(err), zap.String("userID", dbUser.ID.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not generate access token.")
	}
	refreshToken, _, err := h.tokenService.GenerateRefreshToken(dbUser)
	if err != nil {
		// Proceed without a refresh token; the access token is the critical one.
		h.logger.Error("Failed to generate refresh token", zap.Error(err), zap.String("userID", dbUser.ID.String()))
	}

	return gin.H{
		"user": user.ToUserResponse(dbUser),
		"token": &shared.TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresAt:    expiresAt,
		},
	}, nil
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	ctrl, err := h.flow(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	principal, err := ctrl.Register(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		common.RespondWithError(c, mapFlowError(err))
		return
	}

	response, err := h.issueTokens(c, principal, req.Username, user.MethodPassword)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Registration successful.", response)
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}

	ctrl, err := h.flow(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	principal, err := ctrl.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, mapFlowError(err))
		return
	}

	response, err := h.issueTokens(c, principal, "", user.MethodPassword)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Login successful.", response)
}

func (h *Handler) sendPhoneCode(c *gin.Context) {
	var req PhoneCodeRequest
	if !h.bind(c, &req) {
		return
	}

	ctrl, err := h.flow(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	event, err := ctrl.RequestPhoneCode(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		common.RespondWithError(c, mapFlowError(err))
		return
	}

	if event.Outcome == session.PhoneAutoVerified {
		response, err := h.issueTokens(c, event.Principal, "", user.MethodPhone)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondOK(c, "Phone number verified automatically.", response)
		return
	}

	common.RespondOK(c, "Verification code sent.", gin.H{
		"status":       "code_sent",
		"phone_number": req.PhoneNumber,
	})
}

func (h *Handler) verifyPhoneCode(c *gin.Context) {
	var req PhoneVerifyRequest
	if !h.bind(c, &req) {
		return
	}

	// Code submission only makes sense on the flow that requested the code.
	flowID := c.GetHeader(FlowIDHeader)
	ctrl, ok := h.flows.Get(flowID)
	if flowID == "" || !ok {
		common.RespondWithError(c, mapFlowError(session.ErrNoPendingVerification))
		return
	}
	c.Header(FlowIDHeader, flowID)

	principal, err := ctrl.SubmitPhoneCode(c.Request.Context(), req.Code)
	if err != nil {
		common.RespondWithError(c, mapFlowError(err))
		return
	}

	response, err := h.issueTokens(c, principal, "", user.MethodPhone)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Phone verification successful.", response)
}

func (h *Handler) passwordReset(c *gin.Context) {
	var req PasswordResetRequest
	if !h.bind(c, &req) {
		return
	}

	// Stateless: no flow survives this request.
	if err := h.flows.Detached().RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		common.RespondWithError(c, mapFlowError(err))
		return
	}
	common.RespondOK(c, "If an account exists for this email, a reset link has been sent.", nil)
}

func (h *Handler) firebaseLogin(c *gin.Context) {
	var req FirebaseLoginRequest
	if !h.bind(c, &req) {
		return
	}

	token, err := h.fbService.VerifyIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired Firebase ID token."))
		return
	}

	dbUser, _, err := h.userService.GetOrCreateFromFirebaseToken(c.Request.Context(), token)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	accessToken, expiresAt, err := h.tokenService.GenerateAccessToken(dbUser)
	if err != nil {
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Could not generate access token."))
		return
	}
	refreshToken, _, err := h.tokenService.GenerateRefreshToken(dbUser)
	if err != nil {
		h.logger.Error("Failed to generate refresh token", zap.Error(err), zap.String("userID", dbUser.ID.String()))
	}

	common.RespondOK(c, "Firebase sign-in processed successfully.", gin.H{
		"user": user.ToUserResponse(dbUser),
		"token": &shared.TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresAt:    expiresAt,
		},
	})
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bind(c, &req) {
		return
	}

	claims, err := h.tokenService.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		h.logger.Warn("Refresh token validation failed", zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired refresh token."))
		return
	}

	dbUser, err := h.userService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("User not found for valid refresh token claims", zap.String("userID", claims.UserID.String()), zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User associated with refresh token not found."))
		return
	}

	newAccessToken, newExpiresAt, err := h.tokenService.GenerateAccessToken(dbUser)
	if err != nil {
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Could not generate new access token."))
		return
	}

	common.RespondOK(c, "Token refreshed successfully.", &shared.TokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    newExpiresAt,
	})
}

func (h *Handler) logout(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	dbUser, err := h.userService.GetByID(c.Request.Context(), userID)
	if err == nil && dbUser.FirebaseUID != nil {
		if rerr := h.fbService.RevokeRefreshTokens(c.Request.Context(), *dbUser.FirebaseUID); rerr != nil {
			// Local sign-out still proceeds; provider sessions expire on their own.
			h.logger.Warn("Provider token revocation failed on logout", zap.Error(rerr))
		}
	}

	if flowID := c.GetHeader(FlowIDHeader); flowID != "" {
		h.flows.Remove(flowID)
	}

	common.RespondOK(c, "Signed out.", nil)
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	dbUser, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	response := gin.H{"user": user.ToUserResponse(dbUser)}

	if dbUser.FirebaseUID != nil {
		record, perr := h.flows.Detached().FetchProfile(c.Request.Context(), *dbUser.FirebaseUID)
		switch {
		case perr == nil:
			response["profile"] = gin.H{
				"username":   record.Username,
				"handle":     record.Handle,
				"email":      record.Email,
				"created_at": record.CreatedAt,
			}
		case errors.Is(perr, session.ErrProfileNotFound):
			// The registration-time write is best-effort; fall back to a
			// display name derived from what we do have.
			response["profile"] = gin.H{"username": fallbackName(dbUser)}
		default:
			h.logger.Error("Profile lookup failed", zap.Error(perr), zap.String("userID", dbUser.ID.String()))
			response["profile"] = gin.H{"username": fallbackName(dbUser)}
		}
	}

	common.RespondOK(c, "", response)
}

// fallbackName picks a display name when no profile record exists.
func fallbackName(u *user.User) string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	if u.Email != nil {
		if at := strings.Index(*u.Email, "@"); at > 0 {
			return (*u.Email)[:at]
		}
	}
	if u.Phone != nil {
		return *u.Phone
	}
	return "user"
}
