// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for castline.
// It stores the identity and entitlement identifiers the data layer uses to pick
// a backend tier and to sign requests. Nothing here is read by the HTTP layer
// directly; internal/identity adapts the manager to a read-only provider.
package keychain

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/99designs/keyring"

	"castline/cli/internal/xdg"
)

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "castline"

// Keys used for storing identifiers in the OS keychain.
const (
	KeyUserUUID   = "user_uuid"
	KeyPurchaseID = "purchase_id"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = keyring.ErrKeyNotFound

// Manager provides thread-safe operations on a keyring.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the OS keyring.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring, e.g. keyring.NewArrayKeyring in tests.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends.
// On Linux the encrypted file backend is allowed when CASTLINE_KEYRING_PASSWORD is set.
func openRing() (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName: ServiceName,
		PassPrefix:  ServiceName,
	}

	switch runtime.GOOS {
	case "darwin":
		cfg.AllowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		cfg.AllowedBackends = []keyring.BackendType{keyring.WinCredBackend}
		cfg.WinCredPrefix = ServiceName
	default:
		cfg.AllowedBackends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
		if pw := os.Getenv("CASTLINE_KEYRING_PASSWORD"); pw != "" {
			dir, err := xdg.ConfigDir()
			if err != nil {
				return nil, err
			}
			cfg.AllowedBackends = append(cfg.AllowedBackends, keyring.FileBackend)
			cfg.FileDir = filepath.Join(dir, "keyring")
			cfg.FilePasswordFunc = keyring.FixedStringPrompt(pw)
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, errors.New("no usable keychain backend; on Linux set CASTLINE_KEYRING_PASSWORD to use the encrypted file store")
	}
	return ring, nil
}

// Save stores value under key. An empty value removes the key.
// This method is thread-safe.
func (m *Manager) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value == "" {
		return ignoreMissing(m.ring.Remove(key))
	}
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

// Load retrieves the value stored under key. A missing key yields "" and no error.
// This method is thread-safe.
func (m *Manager) Load(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(it.Data), nil
}

// ClearAll removes every castline key from the keychain.
// This method is thread-safe.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range []string{KeyUserUUID, KeyPurchaseID} {
		if err := ignoreMissing(m.ring.Remove(k)); err != nil {
			return err
		}
	}
	return nil
}

func ignoreMissing(err error) error {
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
