package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vstore/internal/app"
	"github.com/vango-dev/vstore/internal/config"
)

type serveOptions struct {
	configPath string
	host       string
	port       int
	encoding   string
	readOnly   bool
	metrics    bool
	tick       time.Duration
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a demo store with the devtools server",
		Long: `Run a demo counter store on a render host and serve it over HTTP.

The counter is incremented on every tick. Connect to /ws to watch it, or
PATCH /state to change it.

Examples:
  vstore serve
  vstore serve --port=8080 --tick=250ms
  vstore serve --config=vstore.yaml --encoding=cbor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default vstore.json or vstore.yaml if present)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to run on (default from config)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "Stream encoding: json or cbor (default from config)")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Reject state patches")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Serve Prometheus metrics")
	cmd.Flags().DurationVar(&opts.tick, "tick", time.Second, "Counter increment interval (0 disables)")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if config.Exists(".") {
		return config.Load(".")
	}
	return config.New(), nil
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	// Apply command-line overrides
	flags := cmd.Flags()
	if opts.host != "" {
		cfg.Devtools.Host = opts.host
	}
	if opts.port > 0 {
		cfg.Devtools.Port = opts.port
	}
	if opts.encoding != "" {
		cfg.Devtools.Encoding = opts.encoding
	}
	if flags.Changed("read-only") {
		cfg.Devtools.ReadOnly = opts.readOnly
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Enabled = opts.metrics
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:              cfg.DevtoolsAddress(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	success("Serving store %q on %s", cfg.Name, cfg.DevtoolsURL())
	info("state:   %s/state", cfg.DevtoolsURL())
	info("stream:  %s/ws (%s)", cfg.DevtoolsURL(), cfg.Devtools.Encoding)
	if cfg.Metrics.Enabled {
		info("metrics: %s%s", cfg.DevtoolsURL(), cfg.Metrics.Path)
	}

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	go func() {
		if err, ok := <-serveErr; ok && err != nil {
			logger.Error("devtools server failed", "error", err)
			cancelLoop()
		}
	}()

	runErr := a.Run(loopCtx, opts.tick)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}

	if ctx.Err() != nil {
		info("Shutting down...")
		return nil
	}
	return runErr
}
