package store

import (
	"log/slog"

	"github.com/vango-dev/vstore/pkg/observe"
)

// Option configures a Store.
type Option func(*config)

type config struct {
	name      string
	observers []observe.Observer
	merge     any
}

// WithName names the store in logs, metrics and traces.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithObserver attaches an observer. It may be given more than once.
func WithObserver(o observe.Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger logs store events to logger at Debug (rejections at Warn).
func WithLogger(logger *slog.Logger) Option {
	return WithObserver(observe.NewSlog(logger))
}

// WithMerge replaces the default reflection-based merge. S must match the
// store's state type; New panics otherwise.
func WithMerge[S any](merge func(S, Partial) (S, error)) Option {
	return func(c *config) {
		c.merge = merge
	}
}
