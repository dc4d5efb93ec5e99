// Package host is a small component render host.
//
// A Root owns a scope tree and a serialized event loop. Components are
// render functions mounted under the Root (or under another component).
// A component re-renders when it is marked dirty, typically because an
// external store it reads through ExternalStore notified it.
//
//	root := host.NewRoot()
//	go root.Run(ctx)
//
//	root.Mount(nil, func() {
//	    n := host.ExternalStore(counter.SubscribeAll, func() int { return counter.Get().Count })
//	    fmt.Println("count", n)
//	})
//
//	root.Dispatch(func() { counter.Set(store.Partial{"Count": 1}) })
//
// Mount, Unmount and Flush are not safe for concurrent use with the event
// loop; call them before Run or from a dispatched function. MarkDirty and
// Dispatch are safe from any goroutine.
package host
