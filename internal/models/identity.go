package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthIdentity is the authentication record for a registered email. It
// is a separate row from the Citizen profile; registration creates the
// identity first and the profile afterwards.
type AuthIdentity struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Active       bool      `json:"active" bson:"active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// SessionClaims are the JWT claims carried by a session token.
type SessionClaims struct {
	Email     string `json:"email"`
	CitizenID string `json:"citizen_id,omitempty"`
	jwt.RegisteredClaims
}

// LoginInput is the credentials payload for session creation.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse carries a freshly issued session token.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
