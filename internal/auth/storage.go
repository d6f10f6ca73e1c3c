// Package auth stores registry credentials in the OS keyring.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/zalando/go-keyring"
)

// KeyringService is the keyring service name credentials are stored under
const KeyringService = "wasm-pkg"

// ErrNotFound is returned when no credentials are stored for a registry
var ErrNotFound = errors.New("no stored credentials")

// Credentials is a username/password pair for one registry
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialStore provides secure storage for registry credentials, keyed by registry host
type CredentialStore interface {
	// Load retrieves stored credentials for a registry
	Load(registry string) (*Credentials, error)
	// Save stores credentials for a registry
	Save(registry string, creds *Credentials) error
	// Delete removes stored credentials for a registry
	Delete(registry string) error
	// Exists checks if credentials are stored for a registry
	Exists(registry string) bool
}

// KeyringStore implements CredentialStore using OS keyring
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Load retrieves stored credentials from the keyring
func (s *KeyringStore) Load(registry string) (*Credentials, error) {
	data, err := keyring.Get(KeyringService, keyFor(registry))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%w for %s", ErrNotFound, registry)
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return &creds, nil
}

// Save stores credentials in the keyring
func (s *KeyringStore) Save(registry string, creds *Credentials) error {
	if creds == nil {
		return fmt.Errorf("cannot save nil credentials")
	}
	if keyFor(registry) == "" {
		return fmt.Errorf("registry is required")
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := keyring.Set(KeyringService, keyFor(registry), string(data)); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}

// Delete removes stored credentials from the keyring. Deleting missing credentials is not an error.
func (s *KeyringStore) Delete(registry string) error {
	err := keyring.Delete(KeyringService, keyFor(registry))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// Exists checks if credentials are stored
func (s *KeyringStore) Exists(registry string) bool {
	_, err := keyring.Get(KeyringService, keyFor(registry))
	return err == nil
}

// keyFor returns the canonical registry host used by push and pull references,
// so docker.io is stored as index.docker.io and Docker.io matches docker.io
func keyFor(registry string) string {
	host := strings.ToLower(strings.TrimSpace(registry))
	if host == "" {
		return ""
	}
	reg, err := name.NewRegistry(host)
	if err != nil {
		return host
	}
	return reg.RegistryStr()
}

// MockStore implements CredentialStore for testing
type MockStore struct {
	creds map[string]*Credentials
	err   error
}

// NewMockStore creates a mock credential store for testing
func NewMockStore(err error) *MockStore {
	return &MockStore{creds: make(map[string]*Credentials), err: err}
}

// Load returns the mock credentials
func (m *MockStore) Load(registry string) (*Credentials, error) {
	if m.err != nil {
		return nil, m.err
	}
	creds, ok := m.creds[keyFor(registry)]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, registry)
	}
	return creds, nil
}

// Save stores the mock credentials
func (m *MockStore) Save(registry string, creds *Credentials) error {
	if m.err != nil {
		return m.err
	}
	m.creds[keyFor(registry)] = creds
	return nil
}

// Delete clears the mock credentials
func (m *MockStore) Delete(registry string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.creds, keyFor(registry))
	return nil
}

// Exists checks if mock credentials exist
func (m *MockStore) Exists(registry string) bool {
	_, ok := m.creds[keyFor(registry)]
	return ok
}
