// Package models defines data structures and domain types.
package models

import "time"

// User is the account record returned by the API on login and profile fetch.
type User struct {
	DateJoined      time.Time `json:"date_joined,omitempty"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	MembershipLevel string    `json:"membership_level,omitempty"`
	ID              int64     `json:"id"`
	IsPremium       bool      `json:"is_premium,omitempty"`
}

// DisplayName returns the best human-readable name for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// StoredCredential is the token and user pair kept in secure storage while signed in.
type StoredCredential struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Valid reports whether the credential carries a usable token.
func (c *StoredCredential) Valid() bool {
	return c != nil && c.Token != ""
}

// LoginRequest is the body of the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by the login endpoint.
type LoginResponse struct {
	User    *User  `json:"user"`
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// TokenResponse is returned by the token refresh endpoint.
type TokenResponse struct {
	Token string `json:"token"`
}
