package host

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/vstore/pkg/scope"
)

const (
	// DefaultQueueSize is the default capacity of the dispatch queue.
	DefaultQueueSize = 256

	// DefaultConsistencyReads is how many times ExternalStore reads a
	// snapshot per render pass unless WithConsistencyReads says otherwise.
	DefaultConsistencyReads = 2
)

// Option configures a Root.
type Option func(*Root)

// WithLogger sets the logger for loop diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Root) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithQueueSize sets the dispatch queue capacity.
func WithQueueSize(n int) Option {
	return func(r *Root) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithConsistencyReads sets how many times ExternalStore reads the
// snapshot in one render pass. Values below 1 are ignored.
func WithConsistencyReads(n int) Option {
	return func(r *Root) {
		if n > 0 {
			r.consistencyReads = n
		}
	}
}

// Root is the top of a component tree and its event loop.
type Root struct {
	owner  *scope.Owner
	logger *slog.Logger

	queueSize        int
	consistencyReads int

	dispatchCh chan func()
	renderCh   chan struct{}
	done       chan struct{}
	closed     atomic.Bool

	mu         sync.Mutex
	components []*Component
}

// NewRoot creates a Root with its own scope Owner.
func NewRoot(opts ...Option) *Root {
	r := &Root{
		owner:            scope.NewOwner(nil),
		logger:           slog.Default(),
		queueSize:        DefaultQueueSize,
		consistencyReads: DefaultConsistencyReads,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "host")
	r.dispatchCh = make(chan func(), r.queueSize)
	r.renderCh = make(chan struct{}, 1)
	r.done = make(chan struct{})
	return r
}

// Owner returns the root scope Owner. Values set on it are visible to
// every mounted component.
func (r *Root) Owner() *scope.Owner {
	return r.owner
}

// Components returns the mounted components in mount order.
func (r *Root) Components() []*Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Component(nil), r.components...)
}

// Dispatch queues fn to run on the event loop. After fn returns, dirty
// components are re-rendered. Dispatch is a no-op once the Root is
// closed and drops fn (with a warning) when the queue is full.
func (r *Root) Dispatch(fn func()) {
	if r.closed.Load() {
		return
	}
	select {
	case r.dispatchCh <- fn:
	case <-r.done:
	default:
		r.logger.Warn("dispatch queue full, discarding callback")
	}
}

// Run processes dispatched functions and render requests until ctx is
// done or the Root is closed. Panics in dispatched functions and renders
// are logged and do not stop the loop.
func (r *Root) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-r.dispatchCh:
			r.execute(fn)

		case <-r.renderCh:
			r.execute(nil)

		case <-ctx.Done():
			r.Close()
			return ctx.Err()

		case <-r.done:
			return nil
		}
	}
}

func (r *Root) execute(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event loop panic",
				"panic", rec,
				"stack", string(debug.Stack()))
		}
	}()

	if fn != nil {
		fn()
	}
	r.Flush()
}

// Flush re-renders dirty components in mount order. A component made
// dirty during the flush is rendered again in a later pass.
func (r *Root) Flush() {
	for _, c := range r.Components() {
		if c.dirty.Load() && !c.unmounted.Load() {
			c.render()
		}
	}
}

// Close stops the event loop and disposes every component. Close is
// idempotent.
func (r *Root) Close() {
	if r.closed.Swap(true) {
		return
	}
	close(r.done)
	r.owner.Dispose()

	r.mu.Lock()
	r.components = nil
	r.mu.Unlock()
}

// Done returns a channel closed when the Root is closed.
func (r *Root) Done() <-chan struct{} {
	return r.done
}

func (r *Root) scheduleRender() {
	select {
	case r.renderCh <- struct{}{}:
	default:
		// Already scheduled
	}
}

func (r *Root) remove(c *Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.components {
		if x == c {
			r.components = append(r.components[:i], r.components[i+1:]...)
			return
		}
	}
}
