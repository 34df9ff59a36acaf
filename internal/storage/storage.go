// Package storage provides a key/value store with optional encryption at rest.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/j-veylop/stockscanner-tui/internal/logger"
)

// Record format tags.
const (
	FormatPlain     = "v1"
	FormatEncrypted = "v2"
)

// ErrDecrypt is returned when an encrypted record cannot be opened with the current key.
var ErrDecrypt = errors.New("failed to decrypt stored value")

// Backend is the raw byte store underneath Storage.
type Backend interface {
	GetValue(key string) ([]byte, bool, error)
	PutValue(key string, value []byte) error
	DeleteValue(key string) error
}

// record is the on-disk envelope. Payload is the JSON value for v1 and a
// base64 string of nonce||ciphertext for v2.
type record struct {
	Format  string          `json:"format"`
	Payload json.RawMessage `json:"payload"`
}

// Storage serializes values to JSON and optionally encrypts them.
type Storage struct {
	backend Backend
	cipher  *Cipher
}

// New creates a Storage over backend. An empty secret falls back to DeviceSecret.
func New(backend Backend, secret string) (*Storage, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = DeviceSecret()
	}

	c, err := NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	return &Storage{backend: backend, cipher: c}, nil
}

// Set stores value under key, encrypting it when encrypt is true.
func (s *Storage) Set(key string, value any, encrypt bool) error {
	plain, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	rec := record{Format: FormatPlain, Payload: plain}
	if encrypt {
		sealed, err := s.cipher.Seal(plain)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", key, err)
		}
		// []byte marshals as a base64 string
		payload, err := json.Marshal(sealed)
		if err != nil {
			return err
		}
		rec = record{Format: FormatEncrypted, Payload: payload}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}

	return s.backend.PutValue(key, data)
}

// Get decodes the value under key into dst. A missing key returns false
// with a nil error. The record's format tag decides whether decryption is
// needed; decrypt only records what the caller expects, so a plain record
// read with decrypt=true still succeeds.
func (s *Storage) Get(key string, dst any, decrypt bool) (bool, error) {
	data, ok, err := s.backend.GetValue(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	plain, err := s.open(key, data, decrypt)
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(plain, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Storage) open(key string, data []byte, decrypt bool) ([]byte, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Format == "" || rec.Payload == nil {
		// Untagged legacy value
		if decrypt {
			logger.Debug("reading untagged value as plain JSON", "key", key)
		}
		return data, nil
	}

	switch rec.Format {
	case FormatPlain:
		if decrypt {
			logger.Debug("expected encrypted value, found plain", "key", key)
		}
		return rec.Payload, nil

	case FormatEncrypted:
		var sealed []byte
		if err := json.Unmarshal(rec.Payload, &sealed); err != nil {
			return nil, fmt.Errorf("%w: %s: malformed payload", ErrDecrypt, key)
		}
		plain, err := s.cipher.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecrypt, key, err)
		}
		return plain, nil

	default:
		return nil, fmt.Errorf("unknown storage format %q for %s", rec.Format, key)
	}
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Storage) Remove(key string) error {
	return s.backend.DeleteValue(key)
}

// Clear removes every listed key and returns the first error encountered.
func (s *Storage) Clear(keys ...string) error {
	var firstErr error
	for _, k := range keys {
		if err := s.backend.DeleteValue(k); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
