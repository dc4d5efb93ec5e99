// Package scope propagates values down a tree of component scopes.
//
// Each mounted component owns an Owner. Owners form a tree that mirrors the
// component tree, carry context values that descendants can look up, run
// cleanups when disposed, and keep per-render hook slots so a component
// can hold on to values (subscriptions, cached selections) across renders.
//
// The current Owner is tracked per goroutine with push/pop discipline:
//
//	scope.WithOwner(owner, func() {
//	    theme := ThemeKey.Lookup() // resolved from owner or its parents
//	})
//
// Typed keys avoid interface assertions at call sites:
//
//	var ThemeKey = scope.NewKey[string]("theme")
//
//	scope.WithOwner(root, func() {
//	    ThemeKey.Set("dark")
//	})
package scope
