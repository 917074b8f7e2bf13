package dto

import "time"

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name      string   `json:"name" validate:"required,min=2,max=100"`
	Email     string   `json:"email" validate:"required,email,max=255"`
	Course    string   `json:"course" validate:"required,min=2,max=100"`
	Period    string   `json:"period" validate:"required,min=1,max=20"`
	Password  string   `json:"password" validate:"required,min=8,max=72,strongpassword"`
	Interests []string `json:"interests" validate:"omitempty,max=20,dive,min=1,max=50"`
	Avatar    string   `json:"avatar" validate:"omitempty,avatar"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest asks for a reset token to be mailed.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest consumes a reset token.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72,strongpassword"`
}

// VerifyTokenRequest asks whether an access token is still valid.
type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// TokenVerificationResponse reports token validity.
type TokenVerificationResponse struct {
	Valid bool          `json:"valid"`
	User  *UserResponse `json:"user,omitempty"`
}
