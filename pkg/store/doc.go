// Package store provides a state container with partial updates and
// selector-based subscriptions.
//
// A Store holds one state value. Updates merge a Partial into it one level
// deep and publish the result as the new committed state. Subscribers
// register a listener together with a selector and an equality function;
// after each update only the listeners whose selected projection changed
// are called.
//
// Usage:
//
//	type State struct {
//	    Count int
//	    Name  string
//	}
//
//	s := store.New(State{Name: "x"})
//
//	unsubscribe := store.Subscribe(s, func() {
//	    fmt.Println("count is now", s.Get().Count)
//	}, func(st State) int { return st.Count }, nil)
//	defer unsubscribe()
//
//	s.Set(store.Partial{"Count": 1})        // prints "count is now 1"
//	s.Set(store.Partial{"Name": "y"})       // count unchanged, nothing printed
//	s.Update(func(st State) store.Partial { // prints "count is now 2"
//	    return store.Partial{"Count": st.Count + 1}
//	})
//
// # Versions and snapshots
//
// Every update that notifies at least one listener advances the store's
// version by exactly one. A Selection uses the version to hand out the same
// cached projection on every read until the store moves on, which is what a
// render host that reads several times per pass needs.
//
// # Goroutines
//
// Get, Version, Subscribe and unsubscribing are safe from any goroutine.
// Updates are single-writer: funnel Set, Update and Replace through one
// goroutine at a time (for example host.Root.Dispatch). No lock is held
// while selectors, equality functions or listeners run, so listeners may
// update the store re-entrantly.
package store
