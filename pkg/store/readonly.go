package store

import (
	"context"
)

// ReadOnlyStore wraps a Store and rejects write transactions while the
// application is in maintenance mode.
//
// The read-only state is determined dynamically by the isReadOnly function,
// so the mode can be toggled at runtime (for example before taking a system
// backup that must not race with edits) without recreating the store.
//
// View transactions always pass through; Update returns [ErrReadOnly]
// without opening a transaction.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) *ReadOnlyStore {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) Update(ctx context.Context, fn func(Tx) error) error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return r.Store.Update(ctx, fn)
}
