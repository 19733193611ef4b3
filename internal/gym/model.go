package gym

import "time"

// Gym is a tenant account. Every member and plan belongs to exactly one gym.
type Gym struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	GymName      string    `db:"gym_name" json:"gymName"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	LogoURL      *string   `db:"logo_url" json:"logoUrl"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	GymName  string `json:"gymName" binding:"required,max=255"`
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Gym          Gym    `json:"gym"`
}
