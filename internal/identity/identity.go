// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package identity exposes the caller's identity and entitlement identifiers to
// the data layer. The layer only reads them, through Provider, to choose a
// backend tier and to attach identity headers; writing happens from the CLI.
package identity

import (
	"context"
	"strings"

	"castline/cli/internal/keychain"
)

// Identity carries the identifiers read from the session store.
type Identity struct {
	UserUUID   string `json:"user_uuid"`
	PurchaseID string `json:"purchase_id"`
}

// Entitled reports whether both identifiers are present, which selects the
// privileged backend and enables identity headers.
func (i Identity) Entitled() bool {
	return strings.TrimSpace(i.UserUUID) != "" && strings.TrimSpace(i.PurchaseID) != ""
}

// Provider supplies the current identity. Implementations must be safe for concurrent use.
type Provider interface {
	Identity(ctx context.Context) (Identity, error)
}

// Static is a fixed Provider.
type Static Identity

// Identity implements Provider.
func (s Static) Identity(context.Context) (Identity, error) { return Identity(s), nil }

// KeychainStore reads and writes identifiers in the OS keychain.
type KeychainStore struct {
	km *keychain.Manager
}

// NewKeychainStore wraps a keychain manager.
func NewKeychainStore(km *keychain.Manager) *KeychainStore {
	return &KeychainStore{km: km}
}

// Identity implements Provider.
func (s *KeychainStore) Identity(ctx context.Context) (Identity, error) {
	uid, err := s.km.Load(keychain.KeyUserUUID)
	if err != nil {
		return Identity{}, err
	}
	pid, err := s.km.Load(keychain.KeyPurchaseID)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserUUID: uid, PurchaseID: pid}, nil
}

// Save persists id. Empty fields are removed from the keychain.
func (s *KeychainStore) Save(ctx context.Context, id Identity) error {
	if err := s.km.Save(keychain.KeyUserUUID, strings.TrimSpace(id.UserUUID)); err != nil {
		return err
	}
	return s.km.Save(keychain.KeyPurchaseID, strings.TrimSpace(id.PurchaseID))
}

// Clear removes all stored identifiers.
func (s *KeychainStore) Clear(ctx context.Context) error {
	return s.km.ClearAll()
}
