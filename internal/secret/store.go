package secret

import (
	"runtime"
	"strings"
	"sync"
)

// TokenKey is the account name the backend API token is stored under.
const TokenKey = "api-token"

// SecretStore provides a pluggable interface for storing sensitive data
// such as the backend API token.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Default returns the keychain on macOS and an in-memory store elsewhere.
func Default() SecretStore {
	if runtime.GOOS == "darwin" {
		return NewKeychainStore()
	}
	return NewMemoryStore()
}

// MemoryStore keeps secrets for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// TokenSource returns a func reading the API token on every call, so a
// token saved mid-session is picked up. fallback is used when the store
// has none.
func TokenSource(store SecretStore, fallback string) func() string {
	return func() string {
		if store != nil {
			if v, err := store.Get(TokenKey); err == nil && len(v) > 0 {
				return strings.TrimSpace(string(v))
			}
		}
		return fallback
	}
}
