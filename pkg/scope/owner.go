package scope

import (
	"slices"
	"sync"
	"sync/atomic"
)

var lastOwnerID atomic.Uint64

// Owner is the lifetime of one component. Disposing an Owner disposes
// its descendants first and then runs its own cleanups.
//
// Values set on an Owner are visible to every descendant through Value,
// which is how providers hand stores down the tree.
type Owner struct {
	id     uint64
	parent *Owner

	mu       sync.Mutex
	children []*Owner
	cleanups []func()
	values   map[any]any
	disposed bool

	// Render-time only; accessed from the goroutine rendering the owner.
	hooks hookSlots
}

// NewOwner creates an Owner under parent. A nil parent makes a root.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{id: lastOwnerID.Add(1), parent: parent}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, o)
		parent.mu.Unlock()
	}
	return o
}

func (o *Owner) ID() uint64 { return o.id }

// Parent returns nil for a root Owner.
func (o *Owner) Parent() *Owner { return o.parent }

func (o *Owner) IsDisposed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disposed
}

// Children returns the live child Owners in creation order.
func (o *Owner) Children() []*Owner {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.children)
}

// OnCleanup registers fn to run on Dispose. On an Owner that is already
// disposed fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		fn()
		return
	}
	o.cleanups = append(o.cleanups, fn)
	o.mu.Unlock()
}

func (o *Owner) SetValue(key, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = map[any]any{}
	}
	o.values[key] = value
}

// Value looks key up on o, then on each ancestor in turn.
func (o *Owner) Value(key any) (any, bool) {
	for cur := o; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		v, ok := cur.values[key]
		cur.mu.Unlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Dispose tears the Owner down: it detaches from its parent, disposes
// children newest first, then runs cleanups in reverse registration
// order. Calling it again does nothing.
func (o *Owner) Dispose() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.disposed = true
	children, cleanups := o.children, o.cleanups
	o.children, o.cleanups = nil, nil
	o.mu.Unlock()

	if p := o.parent; p != nil {
		p.mu.Lock()
		if i := slices.Index(p.children, o); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
		p.mu.Unlock()
	}

	for _, child := range slices.Backward(children) {
		child.Dispose()
	}
	for _, fn := range slices.Backward(cleanups) {
		fn()
	}
}
