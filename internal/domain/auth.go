package domain

import "time"

// Claims is the subset of token claims the session core inspects.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// LoginResult is what the authentication service returns on a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
