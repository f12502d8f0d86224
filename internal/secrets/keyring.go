package secrets

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "posta"

// ErrNotFound is returned when no token is stored for an account.
var ErrNotFound = errors.New("secrets: token not found")

// Keyring stores refresh tokens for connected accounts.
type Keyring struct {
	ring keyring.Keyring
}

// Open returns a keyring backed by the OS keychain, falling back to an
// encrypted file under fileDir when no native backend is available.
func Open(fileDir string) (*Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Keyring{ring: ring}, nil
}

// GetRefreshToken retrieves the stored refresh token for an account email.
func (k *Keyring) GetRefreshToken(email string) (string, error) {
	item, err := k.ring.Get(email)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("account %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting token for %s: %w", email, err)
	}
	return string(item.Data), nil
}

// SetRefreshToken stores the refresh token for an account email.
func (k *Keyring) SetRefreshToken(email, token string) error {
	err := k.ring.Set(keyring.Item{
		Key:   email,
		Data:  []byte(token),
		Label: serviceName + ": " + email,
	})
	if err != nil {
		return fmt.Errorf("storing token for %s: %w", email, err)
	}
	return nil
}

// DeleteRefreshToken removes the stored token for an account email. Deleting
// an absent token is not an error.
func (k *Keyring) DeleteRefreshToken(email string) error {
	err := k.ring.Remove(email)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting token for %s: %w", email, err)
	}
	return nil
}
