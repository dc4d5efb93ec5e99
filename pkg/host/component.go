package host

import (
	"fmt"
	"sync/atomic"

	"github.com/vango-dev/vstore/pkg/scope"
)

// componentIDCounter is used to generate unique component IDs.
var componentIDCounter atomic.Uint64

// Component is a mounted render function with its own scope Owner.
type Component struct {
	id     string
	root   *Root
	parent *Component
	owner  *scope.Owner
	fn     func()

	dirty     atomic.Bool
	unmounted atomic.Bool
	renders   atomic.Int64

	// afterRender holds work queued during render, run once render returns.
	afterRender []func()
}

// Mount creates a component under parent (or under the Root when parent
// is nil) and renders it once.
func (r *Root) Mount(parent *Component, render func()) *Component {
	parentOwner := r.owner
	if parent != nil {
		parentOwner = parent.owner
	}

	c := &Component{
		id:     fmt.Sprintf("c%d", componentIDCounter.Add(1)),
		root:   r,
		parent: parent,
		owner:  scope.NewOwner(parentOwner),
		fn:     render,
	}
	c.owner.OnCleanup(func() {
		c.unmounted.Store(true)
		r.remove(c)
	})

	r.mu.Lock()
	r.components = append(r.components, c)
	r.mu.Unlock()

	c.render()
	return c
}

// ID returns the component's unique identifier.
func (c *Component) ID() string {
	return c.id
}

// Owner returns the component's scope Owner.
func (c *Component) Owner() *scope.Owner {
	return c.owner
}

// Parent returns the parent component, or nil for top-level components.
func (c *Component) Parent() *Component {
	return c.parent
}

// Renders returns how many times the component has rendered.
func (c *Component) Renders() int {
	return int(c.renders.Load())
}

// IsDirty reports whether the component is waiting to re-render.
func (c *Component) IsDirty() bool {
	return c.dirty.Load()
}

// MarkDirty schedules a re-render. Safe to call from any goroutine.
func (c *Component) MarkDirty() {
	if c.unmounted.Load() {
		return
	}
	if !c.dirty.Swap(true) {
		c.root.scheduleRender()
	}
}

// Unmount disposes the component, its children and their subscriptions.
func (c *Component) Unmount() {
	c.owner.Dispose()
}

func (c *Component) render() {
	c.dirty.Store(false)
	c.renders.Add(1)

	scope.WithOwner(c.owner, func() {
		c.owner.StartRender()
		scope.WithRendering(c, c.fn)
	})

	pending := c.afterRender
	c.afterRender = nil
	for _, fn := range pending {
		fn()
	}
}

// Current returns the component rendering on this goroutine, or nil.
func Current() *Component {
	c, _ := scope.Rendering().(*Component)
	return c
}
