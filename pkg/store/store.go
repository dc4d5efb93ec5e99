package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/vstore/internal/merge"
	"github.com/vango-dev/vstore/pkg/observe"
	"github.com/vango-dev/vstore/pkg/shallow"
)

// Partial maps field names to their new values.
type Partial = map[string]any

// Listener is a notification callback.
type Listener func()

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// API is the surface a store exposes to wiring layers such as providers
// and devtools. The state's shape is the type parameter S.
type API[S any] interface {
	Get() S
	Set(p Partial) error
	Update(fn func(S) Partial) error
	Replace(next S)
	SubscribeAll(listener Listener) Unsubscribe
	Version() uint64
}

var _ API[struct{}] = (*Store[struct{}])(nil)

// entry is one registered (listener, selector, equality) triple. Entries
// are identified by pointer.
type entry[S any] struct {
	listener Listener

	// changed evaluates the entry's selector against both states and
	// reports whether its equality function considers them different.
	changed func(prev, next S) bool

	removed atomic.Bool
}

// Store is a state container with partial updates and selector-based
// subscriptions.
type Store[S any] struct {
	name string

	// state is the last committed state.
	state atomic.Pointer[S]

	// version advances once per update that notified a listener.
	version atomic.Uint64

	// entries in subscription order.
	entries []*entry[S]

	// mu protects entries.
	mu sync.Mutex

	merge    func(S, Partial) (S, error)
	observer observe.Observer
}

// New creates a store holding initial.
func New[S any](initial S, opts ...Option) *Store[S] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store[S]{
		name:  cfg.name,
		merge: merge.Apply[S],
	}
	s.state.Store(&initial)

	if cfg.merge != nil {
		fn, ok := cfg.merge.(func(S, Partial) (S, error))
		if !ok {
			panic(fmt.Sprintf("store: WithMerge function %T does not match state type %T", cfg.merge, initial))
		}
		s.merge = fn
	}

	switch len(cfg.observers) {
	case 0:
	case 1:
		s.observer = cfg.observers[0]
	default:
		s.observer = observe.NewMulti(cfg.observers...)
	}

	return s
}

// Name returns the store's name.
func (s *Store[S]) Name() string {
	return s.name
}

// Get returns the last committed state.
func (s *Store[S]) Get() S {
	return *s.state.Load()
}

// Version returns the store's version counter.
func (s *Store[S]) Version() uint64 {
	return s.version.Load()
}

// Len returns the number of live subscription entries.
func (s *Store[S]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Set merges p into the current state and commits the result. Listeners
// whose selected value changed are called before Set returns. A partial
// that cannot be merged is rejected with a coded error and leaves the
// store untouched.
func (s *Store[S]) Set(p Partial) error {
	start := time.Now()
	prev := s.Get()

	next, err := s.merge(prev, p)
	if err != nil {
		s.emit(observe.Event{
			Type:     observe.EventRejected,
			Version:  s.Version(),
			Start:    start,
			Duration: time.Since(start),
			Err:      err,
		})
		return err
	}

	s.commit(start, prev, next, false)
	return nil
}

// Update computes a partial from the current state and merges it as Set.
func (s *Store[S]) Update(fn func(S) Partial) error {
	return s.Set(fn(s.Get()))
}

// Replace commits next as the whole new state without merging.
func (s *Store[S]) Replace(next S) {
	s.commit(time.Now(), s.Get(), next, true)
}

// commit runs one update cycle: evaluate every live entry against prev and
// next, publish next, then notify the changed entries in subscription
// order. Selector panics propagate before anything is published.
func (s *Store[S]) commit(start time.Time, prev, next S, replaced bool) {
	// Copy entries while holding lock
	s.mu.Lock()
	entries := make([]*entry[S], len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	var queue []*entry[S]
	for _, e := range entries {
		if e.removed.Load() {
			continue
		}
		if e.changed(prev, next) {
			queue = append(queue, e)
		}
	}

	s.state.Store(&next)

	version := s.version.Load()
	if len(queue) > 0 {
		version = s.version.Add(1)
	}

	s.emit(observe.Event{
		Type:        observe.EventUpdate,
		Version:     version,
		Notified:    len(queue),
		Subscribers: len(entries),
		Replaced:    replaced,
		Start:       start,
		Duration:    time.Since(start),
	})

	for _, e := range queue {
		// Unsubscribed by an earlier listener in this cycle.
		if e.removed.Load() {
			continue
		}
		e.listener()
	}
}

// SubscribeAll calls listener whenever the state value is replaced by a
// non-identical one.
func (s *Store[S]) SubscribeAll(listener Listener) Unsubscribe {
	return Subscribe(s, listener, func(st S) S { return st }, nil)
}

func (s *Store[S]) add(e *entry[S]) Unsubscribe {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	n := len(s.entries)
	s.mu.Unlock()

	s.emit(observe.Event{Type: observe.EventSubscribe, Version: s.Version(), Subscribers: n})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(e) })
	}
}

func (s *Store[S]) remove(e *entry[S]) {
	e.removed.Store(true)

	s.mu.Lock()
	for i, existing := range s.entries {
		if existing == e {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			break
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	s.emit(observe.Event{Type: observe.EventUnsubscribe, Version: s.Version(), Subscribers: n})
}

func (s *Store[S]) emit(event observe.Event) {
	if s.observer == nil {
		return
	}
	event.Store = s.name
	s.observer.OnEvent(event)
}

// Subscribe registers listener to be called after every update in which
// eq(selector(next), selector(prev)) is false. A nil eq compares by
// identity (shallow.Identical). The returned function removes exactly this
// subscription.
//
// Selectors must be pure; they run on every update, on the updating
// goroutine.
func Subscribe[S, T any](s *Store[S], listener Listener, selector func(S) T, eq func(T, T) bool) Unsubscribe {
	if eq == nil {
		eq = shallow.IdenticalFunc[T]()
	}
	return s.add(&entry[S]{
		listener: listener,
		changed: func(prev, next S) bool {
			return !eq(selector(next), selector(prev))
		},
	})
}
