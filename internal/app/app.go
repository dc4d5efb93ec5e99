// Package app wires a demo counter store to a render host and the
// devtools server. It backs the vstore serve command.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vstore/internal/config"
	"github.com/vango-dev/vstore/pkg/devtools"
	"github.com/vango-dev/vstore/pkg/host"
	"github.com/vango-dev/vstore/pkg/observe"
	"github.com/vango-dev/vstore/pkg/provider"
	"github.com/vango-dev/vstore/pkg/store"
)

// CounterState is the demo store's state.
type CounterState struct {
	Count   int       `json:"count"`
	Step    int       `json:"step"`
	Label   string    `json:"label"`
	Updated time.Time `json:"updated"`
}

// Counter is the store context the demo components read from.
var Counter = provider.New[CounterState]("counter")

// App is a running demo: one store, one render host, one devtools server.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store[CounterState]
	root     *host.Root
	devtools *devtools.Server[CounterState]
	registry *prometheus.Registry

	label    *host.Component
	rendered atomic.Int64
}

// New builds an App from cfg. The config is validated first.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
	}

	opts := []store.Option{
		store.WithName(cfg.Name),
		store.WithLogger(logger),
	}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		gatherer = a.registry
		opts = append(opts, store.WithObserver(observe.NewMetrics(
			observe.WithNamespace(cfg.Metrics.Namespace),
			observe.WithRegistry(a.registry),
		)))
	}
	if cfg.Tracing.Enabled {
		opts = append(opts, store.WithObserver(observe.NewTracer(
			observe.WithTracerName(cfg.Tracing.TracerName),
		)))
	}

	a.store = store.New(CounterState{Step: 1, Label: cfg.Name}, opts...)

	a.root = host.NewRoot(
		host.WithLogger(logger),
		host.WithQueueSize(cfg.Host.QueueSize),
		host.WithConsistencyReads(cfg.Host.ConsistencyReads),
	)
	a.root.Mount(nil, func() {
		Counter.Provide(a.store)
		if a.label == nil {
			a.label = a.root.Mount(host.Current(), a.renderLabel)
		}
	})

	a.devtools = devtools.New(a.store, devtools.Options{
		Logger:       logger,
		Encoding:     cfg.Devtools.Encoding,
		ReadOnly:     cfg.Devtools.ReadOnly,
		AllowOrigins: cfg.Devtools.AllowOrigins,
		Dispatch:     a.root.Dispatch,
		Gatherer:     gatherer,
		MetricsPath:  cfg.Metrics.Path,
	})

	return a, nil
}

func (a *App) renderLabel() {
	count := provider.UseSelector(Counter, func(s CounterState) int { return s.Count }, nil)
	a.rendered.Store(int64(count))
	a.logger.Debug("render", "component", "label", "count", count)
}

// Handler returns the devtools HTTP handler.
func (a *App) Handler() http.Handler {
	return a.devtools.Handler()
}

// Store returns the demo store.
func (a *App) Store() *store.Store[CounterState] {
	return a.store
}

// Rendered returns the count the label component last rendered.
func (a *App) Rendered() int {
	return int(a.rendered.Load())
}

// Renders returns how many times the label component has rendered.
func (a *App) Renders() int {
	return a.label.Renders()
}

// Increment queues a step on the event loop.
func (a *App) Increment() {
	a.root.Dispatch(func() {
		err := a.store.Update(func(s CounterState) store.Partial {
			return store.Partial{"Count": s.Count + s.Step, "Updated": time.Now()}
		})
		if err != nil {
			a.logger.Warn("increment failed", "error", err)
		}
	})
}

// Run drives the event loop until ctx is done, incrementing the counter
// every tick. A zero tick disables the ticker.
func (a *App) Run(ctx context.Context, tick time.Duration) error {
	if tick > 0 {
		go func() {
			ticker := time.NewTicker(tick)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					a.Increment()
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return a.root.Run(ctx)
}

// Close disconnects devtools clients and unmounts every component.
func (a *App) Close() {
	a.devtools.Close()
	a.root.Close()
}
