// Package observe reports store activity to logs, metrics and traces.
//
// A store emits an Event for every update cycle, every subscription change
// and every rejected partial. Observers are attached with
// store.WithObserver; several can be combined with NewMulti.
//
//	reg := prometheus.NewRegistry()
//	s := store.New(initial,
//	    store.WithName("cart"),
//	    store.WithObserver(observe.NewMulti(
//	        observe.NewSlog(slog.Default()),
//	        observe.NewMetrics(observe.WithRegistry(reg)),
//	        observe.NewTracer(),
//	    )),
//	)
package observe

import "time"

// EventType identifies the kind of event.
type EventType string

const (
	// EventUpdate is emitted once per committed update, after the state
	// is published and before listeners run.
	EventUpdate EventType = "store.update"

	// EventRejected is emitted when a partial could not be merged.
	EventRejected EventType = "store.rejected"

	// EventSubscribe is emitted when a subscription entry is registered.
	EventSubscribe EventType = "store.subscribe"

	// EventUnsubscribe is emitted when a subscription entry is removed.
	EventUnsubscribe EventType = "store.unsubscribe"
)

// Event describes one store occurrence.
type Event struct {
	Type EventType

	// Store is the store's name (store.WithName).
	Store string

	// Version is the store's version after the event.
	Version uint64

	// Notified is the number of listeners queued by an update.
	Notified int

	// Subscribers is the number of live subscription entries.
	Subscribers int

	// Replaced is true when the update replaced the state wholesale.
	Replaced bool

	// Start is when the update began; Duration covers selector evaluation
	// and commit.
	Start    time.Time
	Duration time.Duration

	// Err is set for EventRejected.
	Err error
}

// Observer receives store events. Implementations must not call back into
// the store that emitted the event.
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(event).
func (f ObserverFunc) OnEvent(event Event) { f(event) }

// NoOp discards all events.
type NoOp struct{}

func (NoOp) OnEvent(Event) {}

// Multi fans out events to multiple observers.
type Multi struct {
	observers []Observer
}

// NewMulti creates a Multi that forwards events to all non-nil observers.
func NewMulti(observers ...Observer) *Multi {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &Multi{observers: filtered}
}

func (m *Multi) OnEvent(event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(event)
	}
}

// Len returns the number of attached observers.
func (m *Multi) Len() int {
	return len(m.observers)
}
