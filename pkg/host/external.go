package host

import (
	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/shallow"
)

type externalSlot struct {
	subscribed bool
}

// ExternalStore reads an external store from the component being rendered.
//
// On the first render it subscribes (after the render returns) with a
// callback that marks the component dirty, and unsubscribes when the
// component unmounts. If the snapshot moved between the render and the
// subscription, the component is marked dirty straight away.
//
// The snapshot is read as many times as the Root's WithConsistencyReads
// allows (DefaultConsistencyReads otherwise); if two reads in the same
// pass are not identical, ExternalStore panics with an E020 error.
// Calling it outside a render panics with an E021 error.
func ExternalStore[T any](subscribe func(notify func()) func(), snapshot func() T) T {
	c := Current()
	if c == nil {
		panic(errors.New("E021"))
	}

	var slot *externalSlot
	if s := c.owner.UseHookSlot(); s != nil {
		slot = s.(*externalSlot)
	} else {
		slot = &externalSlot{}
		c.owner.SetHookSlot(slot)
	}

	value := snapshot()
	reads := c.root.consistencyReads
	for i := 1; i < reads; i++ {
		if again := snapshot(); !shallow.Identical(any(value), any(again)) {
			panic(errors.New("E020").
				WithDetailf("component %s got a new value on read %d of %d", c.id, i+1, reads))
		}
	}

	if !slot.subscribed {
		slot.subscribed = true
		c.afterRender = append(c.afterRender, func() {
			unsubscribe := subscribe(c.MarkDirty)
			c.owner.OnCleanup(unsubscribe)
			if !shallow.Identical(any(snapshot()), any(value)) {
				c.MarkDirty()
			}
		})
	}

	return value
}
