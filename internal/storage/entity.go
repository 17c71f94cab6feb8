package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	shoperrors "github.com/abgdnv/storesim/internal/errors"
)

// MigrationFunc rewrites a stored document into the current schema.
// It reports whether anything changed so the result can be written back once.
type MigrationFunc func(raw []byte) ([]byte, bool, error)

// CorruptStateError reports a stored value that could not be migrated or decoded.
// It matches shoperrors.ErrCorruptState.
type CorruptStateError struct {
	Key Key
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("%s under %q: %v", shoperrors.ErrCorruptState, e.Key.String(), e.Err)
}

func (e *CorruptStateError) Unwrap() []error {
	return []error{shoperrors.ErrCorruptState, e.Err}
}

// Entity is a typed JSON view over one kind of the store.
type Entity[T any] struct {
	store   Store
	kind    Kind
	migrate MigrationFunc
}

// NewEntity creates a typed accessor for kind. migrate may be nil.
func NewEntity[T any](store Store, kind Kind, migrate MigrationFunc) *Entity[T] {
	return &Entity[T]{
		store:   store,
		kind:    kind,
		migrate: migrate,
	}
}

// Load reads and decodes the value owned by owner (empty for global kinds).
// found is false when nothing is stored. Malformed content returns a *CorruptStateError.
func (e *Entity[T]) Load(ctx context.Context, owner string) (value T, found bool, err error) {
	key := Key{Kind: e.kind, Owner: owner}
	if err := key.Validate(); err != nil {
		return value, false, err
	}

	raw, err := e.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if e.migrate != nil {
		migrated, changed, mErr := e.migrate(raw)
		if mErr != nil {
			return value, false, &CorruptStateError{Key: key, Err: mErr}
		}
		if changed {
			if err := e.store.Put(ctx, key, migrated); err != nil {
				return value, false, fmt.Errorf("failed to write back migrated %s: %w", key, err)
			}
		}
		raw = migrated
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		var zero T
		return zero, false, &CorruptStateError{Key: key, Err: err}
	}
	return value, true, nil
}

// Save encodes value and stores it under owner.
func (e *Entity[T]) Save(ctx context.Context, owner string, value T) error {
	key := Key{Kind: e.kind, Owner: owner}
	if err := key.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := e.store.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
