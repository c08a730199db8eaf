// File: internal/auth/model.go
package auth

// RegisterRequest defines the structure for registration requests.
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Username        string `json:"username" binding:"required,min=3,max=100"`
}

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// PhoneCodeRequest asks for a one-time code to be sent.
type PhoneCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,e164"`
}

// PhoneVerifyRequest submits a received one-time code.
type PhoneVerifyRequest struct {
	Code string `json:"code" binding:"required,numeric,min=4,max=8"`
}

// PasswordResetRequest asks for a password-reset email.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// FirebaseLoginRequest exchanges a Firebase ID token for API tokens.
type FirebaseLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// RefreshTokenRequest defines the structure for refresh token requests.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
