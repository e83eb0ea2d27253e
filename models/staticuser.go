package models

import "time"

// StaticUser is a pre-provisioned account managed by an admin. Static users
// authenticate with a username/password pair and get an opaque session token
// instead of a JWT.
type StaticUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StaticLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type StaticLoginResponse struct {
	SessionToken string     `json:"session_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	User         StaticUser `json:"user"`
}

type CreateStaticUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type UpdateStaticUserRequest struct {
	IsActive *bool  `json:"is_active"`
	Password string `json:"password"`
}
