package store

import "github.com/vango-dev/vstore/pkg/shallow"

// Selection adapts a store and a selector to a render host that may read
// the selected value several times per render pass. Reads within one store
// version return the same cached value; the selector is re-applied only
// after the version advances.
//
// A Selection belongs to a single consumer and is not safe for concurrent
// use.
type Selection[S, T any] struct {
	store    *Store[S]
	selector func(S) T
	eq       func(T, T) bool

	snapshot T
	version  uint64
}

// NewSelection creates a Selection, seeding its cache with the selector
// applied to the current state. A nil eq compares by identity.
func NewSelection[S, T any](s *Store[S], selector func(S) T, eq func(T, T) bool) *Selection[S, T] {
	if eq == nil {
		eq = shallow.IdenticalFunc[T]()
	}
	sel := &Selection[S, T]{
		store:    s,
		selector: selector,
		eq:       eq,
	}
	sel.version = s.Version()
	sel.snapshot = selector(s.Get())
	return sel
}

// Snapshot returns the selected value. While the store's version matches
// the cached one the cached value is returned as is, even if the state was
// replaced by an update that changed no selection.
func (sel *Selection[S, T]) Snapshot() T {
	v := sel.store.Version()
	if v == sel.version {
		return sel.snapshot
	}
	sel.snapshot = sel.selector(sel.store.Get())
	sel.version = v
	return sel.snapshot
}

// Subscribe registers notify with the store using the selection's own
// selector and equality function.
func (sel *Selection[S, T]) Subscribe(notify Listener) Unsubscribe {
	return Subscribe(sel.store, notify, sel.selector, sel.eq)
}

// Version returns the store version the cached snapshot was taken at.
func (sel *Selection[S, T]) Version() uint64 {
	return sel.version
}

// Store returns the underlying store.
func (sel *Selection[S, T]) Store() *Store[S] {
	return sel.store
}
