// Package storage defines the secure storage collaborator contract and its
// reference implementations. Platform encryption (Keystore, Keychain) is the
// implementation's concern; the core only sees opaque strings.
package storage

import "context"

// SecureStorage is the capability contract for persisting token material and
// small auth flags. Implementations must tolerate repeated calls.
type SecureStorage interface {
	// Store persists value under key, overwriting any previous value.
	Store(ctx context.Context, key, value string) error

	// Retrieve returns the stored value, or ("", false, nil) when absent.
	Retrieve(ctx context.Context, key string) (string, bool, error)

	// Remove deletes the key. Reports whether a value was present.
	Remove(ctx context.Context, key string) (bool, error)

	// Contains reports whether the key holds a value.
	Contains(ctx context.Context, key string) (bool, error)

	// Clear removes every key owned by this storage.
	Clear(ctx context.Context) error

	// Keys returns all stored keys.
	Keys(ctx context.Context) ([]string, error)

	// ItemCount returns the number of stored values.
	ItemCount(ctx context.Context) (int, error)
}
