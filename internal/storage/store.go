// Package storage provides the key-value persistence layer used by every stateful component.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrKeyNotFound is returned by a Store when no value is stored under a key.
var ErrKeyNotFound = errors.New("key not found")

// ErrInvalidKey is returned when a key does not respect its kind's ownership rules.
var ErrInvalidKey = errors.New("invalid storage key")

// Kind names an entity family in the store.
type Kind string

const (
	KindCatalog     Kind = "catalog"
	KindUsers       Kind = "users"
	KindWishlist    Kind = "wishlist"
	KindOrders      Kind = "orders"
	KindCredentials Kind = "credentials"
)

// PerUser reports whether keys of this kind are namespaced by username.
func (k Kind) PerUser() bool {
	switch k {
	case KindWishlist, KindOrders, KindCredentials:
		return true
	default:
		return false
	}
}

// Key addresses a stored value by entity kind and owner. Owner is empty for global kinds.
type Key struct {
	Kind  Kind
	Owner string
}

// GlobalKey returns the key of a global entity such as the catalog.
func GlobalKey(kind Kind) Key {
	return Key{Kind: kind}
}

// UserKey returns the key of an entity owned by username.
func UserKey(kind Kind, username string) Key {
	return Key{Kind: kind, Owner: username}
}

// Validate checks that the key matches its kind's ownership rules.
func (k Key) Validate() error {
	switch {
	case k.Kind == "":
		return fmt.Errorf("%w: empty kind", ErrInvalidKey)
	case k.Kind.PerUser() && strings.TrimSpace(k.Owner) == "":
		return fmt.Errorf("%w: %s requires an owner", ErrInvalidKey, k.Kind)
	case !k.Kind.PerUser() && k.Owner != "":
		return fmt.Errorf("%w: %s is global", ErrInvalidKey, k.Kind)
	}
	return nil
}

// String renders the logical layout, e.g. "catalog" or "orders:alice".
func (k Key) String() string {
	if k.Owner == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + ":" + k.Owner
}

// Store is a key-value backend holding opaque encoded values.
// Implementations give no atomicity across keys.
type Store interface {
	// Get returns the stored bytes.
	// Returns ErrKeyNotFound if nothing is stored under the key.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Put replaces the value stored under the key.
	Put(ctx context.Context, key Key, value []byte) error

	// Delete removes the value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// Close releases backend resources.
	Close() error
}
