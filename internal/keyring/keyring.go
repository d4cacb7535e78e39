package keyring

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

const (
	serviceName = "autodisplay-mqtt"
)

var (
	ring     keyring.Keyring
	ringOnce sync.Once
	ringErr  error
)

// initKeyring opens the system keyring once per process
func initKeyring() (keyring.Keyring, error) {
	ringOnce.Do(func() {
		ring, ringErr = keyring.Open(keyring.Config{
			ServiceName: serviceName,
			AllowedBackends: []keyring.BackendType{
				keyring.SecretServiceBackend, // GNOME Keyring, KWallet
				keyring.KWalletBackend,
				keyring.KeychainBackend,
				keyring.PassBackend,
			},
		})
	})
	return ring, ringErr
}

// Store reads and writes MQTT broker passwords keyed by username
type Store struct {
	open func() (keyring.Keyring, error)
}

// NewStore returns a Store backed by the system keyring
func NewStore() *Store {
	return &Store{open: initKeyring}
}

// NewStoreWith returns a Store backed by kr, used by tests
func NewStoreWith(kr keyring.Keyring) *Store {
	return &Store{open: func() (keyring.Keyring, error) { return kr, nil }}
}

// SetPassword stores the broker password for username
func (s *Store) SetPassword(username, password string) error {
	kr, err := s.open()
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}

	return kr.Set(keyring.Item{
		Key:   username,
		Data:  []byte(password),
		Label: fmt.Sprintf("autodisplay MQTT password for %s", username),
	})
}

// GetPassword retrieves the broker password for username.
// Returns empty string if no password is stored.
func (s *Store) GetPassword(username string) (string, error) {
	kr, err := s.open()
	if err != nil {
		return "", fmt.Errorf("failed to open keyring: %w", err)
	}

	item, err := kr.Get(username)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to retrieve password: %w", err)
	}
	return string(item.Data), nil
}

// DeletePassword removes the stored password for username
func (s *Store) DeletePassword(username string) error {
	kr, err := s.open()
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}

	// Not every backend reports a missing key on Remove
	if _, err := kr.Get(username); errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("no password stored for '%s'", username)
	}

	err = kr.Remove(username)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("no password stored for '%s'", username)
	}
	return err
}

// HasPassword checks if a password is stored for username
func (s *Store) HasPassword(username string) bool {
	kr, err := s.open()
	if err != nil {
		return false
	}

	_, err = kr.Get(username)
	return err == nil
}
