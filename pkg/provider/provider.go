// Package provider binds stores to component scopes.
//
// A Context names a kind of store. A component renders a Provider for it,
// and descendants read the nearest store with UseStore or subscribe to a
// projection with UseSelector:
//
//	var Counter = provider.New[CounterState]("counter")
//
//	var label *host.Component
//	root.Mount(nil, func() {
//	    Counter.Provider(func() *store.Store[CounterState] {
//	        return store.New(CounterState{})
//	    }, func() {
//	        // children runs on every render of the provider; mount once.
//	        if label == nil {
//	            label = root.Mount(host.Current(), CountLabel)
//	        }
//	    })
//	})
//
//	func CountLabel() {
//	    n := provider.UseSelector(Counter, func(s CounterState) int { return s.Count }, nil)
//	    fmt.Println(n)
//	}
package provider

import (
	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/host"
	"github.com/vango-dev/vstore/pkg/scope"
	"github.com/vango-dev/vstore/pkg/store"
)

// Context identifies a store of state type S in the scope tree.
type Context[S any] struct {
	name string
	key  *scope.Key[*store.Store[S]]
}

// New creates a store context. Each call yields a distinct context, even
// for the same name and state type.
func New[S any](name string) *Context[S] {
	return &Context[S]{
		name: name,
		key:  scope.NewKey[*store.Store[S]](name),
	}
}

// Name returns the context's name.
func (c *Context[S]) Name() string {
	return c.name
}

// Provide binds s on the current Owner, making it visible to the Owner
// and its descendants. It panics with an E001 error when no Owner is
// active.
func (c *Context[S]) Provide(s *store.Store[S]) {
	if !c.key.Set(s) {
		panic(errors.New("E001").
			WithDetailf("Provide for context %q called with no current owner", c.name))
	}
}

type providerSlot[S any] struct {
	store *store.Store[S]
}

// Provider creates a store with create on the first render of the current
// component, binds it, and renders children. Later renders reuse the
// same store.
func (c *Context[S]) Provider(create func() *store.Store[S], children func()) {
	owner := scope.Current()
	if owner == nil {
		panic(errors.New("E001").
			WithDetailf("Provider for context %q rendered with no current owner", c.name))
	}

	var slot *providerSlot[S]
	if v := owner.UseHookSlot(); v != nil {
		slot = v.(*providerSlot[S])
	} else {
		slot = &providerSlot[S]{store: create()}
		owner.SetHookSlot(slot)
	}

	c.Provide(slot.store)
	if children != nil {
		children()
	}
}

// Lookup returns the nearest store bound for c, if any.
func (c *Context[S]) Lookup() (*store.Store[S], bool) {
	s, ok := c.key.Lookup()
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}

// UseStore returns the nearest store bound for c. It panics with an E001
// error when none is reachable from the current Owner.
func (c *Context[S]) UseStore() *store.Store[S] {
	s, ok := c.Lookup()
	if !ok {
		panic(errors.New("E001").
			WithDetailf("no store bound for context %q", c.name).
			WithExample(c.name + ".Provider(create, children)"))
	}
	return s
}

type selectorSlot[S, T any] struct {
	sel *store.Selection[S, T]
}

// UseSelector reads a projection of the nearest store for c and re-renders
// the current component when the projection changes under eq (identity
// when nil). The selector and eq given on the first render are kept for
// the component's lifetime.
func UseSelector[S, T any](c *Context[S], selector func(S) T, eq func(T, T) bool) T {
	s := c.UseStore()
	owner := scope.Current()

	var slot *selectorSlot[S, T]
	if v := owner.UseHookSlot(); v != nil {
		slot = v.(*selectorSlot[S, T])
	} else {
		slot = &selectorSlot[S, T]{sel: store.NewSelection(s, selector, eq)}
		owner.SetHookSlot(slot)
	}

	sel := slot.sel
	return host.ExternalStore(func(notify func()) func() {
		return sel.Subscribe(notify)
	}, sel.Snapshot)
}
