package secret

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultKeychainService groups the studio's items in the macOS Keychain.
const DefaultKeychainService = "studio-api"

// exit status of `security` when the item does not exist
const errSecItemNotFound = 44

// KeychainStore keeps secrets as generic passwords in the macOS Keychain,
// one item per key under a shared service name.
type KeychainStore struct {
	service string
}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: DefaultKeychainService}
}

// Set adds or replaces the item. The value goes through `security -i` on
// stdin so the token never shows up in the process list.
func (k *KeychainStore) Set(key string, value []byte) error {
	line := fmt.Sprintf("add-generic-password -U -a %s -s %s -w %s\n",
		quote(key), quote(k.service), quote(string(value)))
	cmd := exec.Command("security", "-i")
	cmd.Stdin = strings.NewReader(line)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("keychain set %s: %s: %w", key, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Get returns nil and no error when the item does not exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := exec.Command("security", "find-generic-password", "-a", key, "-s", k.service, "-w").Output()
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return bytes.TrimSpace(out), nil
}

// Delete is a no-op for a missing item.
func (k *KeychainStore) Delete(key string) error {
	err := exec.Command("security", "delete-generic-password", "-a", key, "-s", k.service).Run()
	if err != nil && !notFound(err) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}

func notFound(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == errSecItemNotFound
}

// quote wraps s for the `security -i` command parser.
func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
