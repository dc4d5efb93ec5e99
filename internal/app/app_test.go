package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vstore/internal/config"
	"github.com/vango-dev/vstore/internal/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.New()
	cfg.Devtools.Encoding = "xml"

	if _, err := New(cfg, quietLogger()); errors.Code(err) != "E031" {
		t.Errorf("New() error = %v, want E031", err)
	}
}

func TestInitialRender(t *testing.T) {
	a, err := New(config.New(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.Renders() != 1 || a.Rendered() != 0 {
		t.Errorf("Renders() = %d, Rendered() = %d", a.Renders(), a.Rendered())
	}
	if a.Store().Get().Label != "store" {
		t.Errorf("Label = %q, want the configured name", a.Store().Get().Label)
	}
}

func TestRunTicksAndRenders(t *testing.T) {
	a, err := New(config.New(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, 5*time.Millisecond) }()

	waitFor(t, "two ticks to render", func() bool { return a.Rendered() >= 2 })

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	a.Close()
}

func TestPatchThroughEventLoop(t *testing.T) {
	a, err := New(config.New(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		a.Close()
	}()
	go func() { _ = a.Run(ctx, 0) }()

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/state", strings.NewReader(`{"count": 41, "step": 2}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH /state = %d", resp.StatusCode)
	}

	waitFor(t, "label to render the patched count", func() bool { return a.Rendered() == 41 })

	a.Increment()
	waitFor(t, "label to render the increment", func() bool { return a.Rendered() == 43 })
}

func TestMetricsEnabled(t *testing.T) {
	cfg := config.New()
	cfg.Name = "demo"
	cfg.Metrics.Enabled = true

	a, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if err := a.Store().Set(map[string]any{"count": 1}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `vstore_updates_total{result="notified",store="demo"} 1`) {
		t.Errorf("metrics output:\n%s", rec.Body.String())
	}
}

func TestStateRoute(t *testing.T) {
	a, err := New(config.New(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	var body struct {
		Store string       `json:"store"`
		State CounterState `json:"state"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Store != "store" || body.State.Step != 1 {
		t.Errorf("body = %+v", body)
	}
}
