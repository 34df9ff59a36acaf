package auth

import (
	"errors"
	"fmt"

	"github.com/j-veylop/stockscanner-tui/internal/models"
)

// Storage keys for the signed-in credential.
const (
	KeyToken = "auth_token"
	KeyUser  = "user_data"
)

// Store is the persistence used for credentials. storage.Storage satisfies it.
type Store interface {
	Set(key string, value any, encrypt bool) error
	Get(key string, dst any, decrypt bool) (bool, error)
	Remove(key string) error
}

// Credentials reads and writes the token and user record, always encrypted.
type Credentials struct {
	store Store
}

// NewCredentials creates a Credentials backed by store.
func NewCredentials(store Store) *Credentials {
	return &Credentials{store: store}
}

// Token returns the stored bearer token, or "" when signed out.
func (c *Credentials) Token() (string, error) {
	var token string
	if _, err := c.store.Get(KeyToken, &token, true); err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

// User returns the stored user record, or nil when signed out.
func (c *Credentials) User() (*models.User, error) {
	var user models.User
	found, err := c.store.Get(KeyUser, &user, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// Load returns the full credential, or nil when no token is stored.
func (c *Credentials) Load() (*models.StoredCredential, error) {
	token, err := c.Token()
	if err != nil || token == "" {
		return nil, err
	}
	user, err := c.User()
	if err != nil {
		return nil, err
	}
	return &models.StoredCredential{Token: token, User: user}, nil
}

// Save stores token and user.
func (c *Credentials) Save(token string, user *models.User) error {
	if token == "" {
		return errors.New("refusing to store empty token")
	}
	if err := c.SaveToken(token); err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	if err := c.store.Set(KeyUser, user, true); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

// SaveToken replaces the stored token.
func (c *Credentials) SaveToken(token string) error {
	if err := c.store.Set(KeyToken, token, true); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Clear removes token and user.
func (c *Credentials) Clear() error {
	return errors.Join(c.store.Remove(KeyToken), c.store.Remove(KeyUser))
}
