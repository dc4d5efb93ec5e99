package devtools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/internal/merge"
	"github.com/vango-dev/vstore/pkg/store"
)

const (
	// maxPatchBytes caps PATCH /state bodies.
	maxPatchBytes = 1 << 20

	// patchTimeout bounds how long a patch waits for the dispatcher.
	patchTimeout = 5 * time.Second

	// clientBuffer is the per-client frame queue length.
	clientBuffer = 16

	writeWait = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	// Logger receives request and stream diagnostics.
	Logger *slog.Logger

	// Encoding is the stream frame encoding: "json" (default) or "cbor".
	Encoding string

	// ReadOnly rejects PATCH /state with 405.
	ReadOnly bool

	// AllowOrigins lists origins allowed to open the stream.
	// Empty means same-origin only; "*" allows any origin.
	AllowOrigins []string

	// Dispatch runs state writes. Defaults to running them inline under a
	// server-wide lock.
	Dispatch func(func())

	// Gatherer, when set, is served on MetricsPath.
	Gatherer prometheus.Gatherer

	// MetricsPath defaults to /metrics.
	MetricsPath string
}

// Server exposes one store over HTTP and websockets.
type Server[S any] struct {
	store    *store.Store[S]
	opts     Options
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader

	writeMu sync.Mutex
	unsub   store.Unsubscribe

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

// New creates a devtools server for s and subscribes to its updates.
func New[S any](s *store.Store[S], opts Options) *Server[S] {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingJSON
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	srv := &Server[S]{
		store:   s,
		opts:    opts,
		logger:  opts.Logger.With("component", "devtools", "store", s.Name()),
		clients: make(map[string]*client),
	}
	if srv.opts.Dispatch == nil {
		srv.opts.Dispatch = srv.dispatchInline
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     srv.checkOrigin,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(srv.logRequests)

	r.Get("/healthz", srv.handleHealth)
	r.Get("/state", srv.handleState)
	r.Patch("/state", srv.handlePatch)
	r.Get("/version", srv.handleVersion)
	r.Get("/ws", srv.handleStream)
	if opts.Gatherer != nil {
		r.Handle(srv.opts.MetricsPath, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	srv.router = r

	srv.unsub = s.SubscribeAll(srv.broadcast)
	return srv
}

// Handler returns the server's HTTP handler.
func (srv *Server[S]) Handler() http.Handler {
	return srv.router
}

// Clients returns the number of connected stream clients.
func (srv *Server[S]) Clients() int {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	return len(srv.clients)
}

// Close unsubscribes from the store and disconnects every stream client.
// Close is idempotent.
func (srv *Server[S]) Close() {
	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		return
	}
	srv.closed = true
	clients := make([]*client, 0, len(srv.clients))
	for _, c := range srv.clients {
		clients = append(clients, c)
	}
	srv.mu.Unlock()

	srv.unsub()
	for _, c := range clients {
		c.shutdown()
	}
	srv.wg.Wait()
}

func (srv *Server[S]) dispatchInline(fn func()) {
	srv.writeMu.Lock()
	defer srv.writeMu.Unlock()
	fn()
}

func (srv *Server[S]) snapshot(frameType string) Frame {
	// Version first: a racing update can only make the state newer than
	// the version it is reported with, never older.
	version := srv.store.Version()
	return Frame{
		Type:    frameType,
		Store:   srv.store.Name(),
		Version: version,
		State:   srv.store.Get(),
	}
}

// =============================================================================
// HTTP handlers
// =============================================================================

func (srv *Server[S]) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (srv *Server[S]) handleState(w http.ResponseWriter, r *http.Request) {
	frame := srv.snapshot("")
	if strings.Contains(r.Header.Get("Accept"), "application/cbor") {
		data, err := encodeFrame(frame, EncodingCBOR)
		if err != nil {
			srv.writeError(w, http.StatusInternalServerError, errors.New("E040").Wrap(err))
			return
		}
		w.Header().Set("Content-Type", "application/cbor")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (srv *Server[S]) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"store":   srv.store.Name(),
		"version": srv.store.Version(),
	})
}

func (srv *Server[S]) handlePatch(w http.ResponseWriter, r *http.Request) {
	if srv.opts.ReadOnly {
		srv.writeError(w, http.StatusMethodNotAllowed, errors.New("E041"))
		return
	}

	var raw map[string]json.RawMessage
	body := http.MaxBytesReader(w, r.Body, maxPatchBytes)
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		srv.writeError(w, http.StatusBadRequest, errors.New("E040").
			WithDetail("body must be a JSON object").Wrap(err))
		return
	}
	if raw == nil {
		srv.writeError(w, http.StatusBadRequest, errors.New("E040").
			WithDetail("body must be a JSON object"))
		return
	}

	partial, err := srv.decodePartial(raw)
	if err != nil {
		srv.writeError(w, http.StatusBadRequest, err)
		return
	}

	done := make(chan error, 1)
	srv.opts.Dispatch(func() {
		done <- srv.store.Set(partial)
	})

	ctx, cancel := context.WithTimeout(r.Context(), patchTimeout)
	defer cancel()

	select {
	case err := <-done:
		if err != nil {
			srv.writeError(w, http.StatusBadRequest, err)
			return
		}
	case <-ctx.Done():
		srv.writeError(w, http.StatusServiceUnavailable, errors.New("E040").
			WithDetail("state update was not applied in time").Wrap(ctx.Err()))
		return
	}

	srv.logger.Info("state patched", "fields", len(partial), "version", srv.store.Version())
	writeJSON(w, http.StatusOK, srv.snapshot(""))
}

// decodePartial decodes each field into the state's field type when the
// state type declares one, so that typed fields receive typed values.
func (srv *Server[S]) decodePartial(raw map[string]json.RawMessage) (store.Partial, error) {
	stateType := reflect.TypeOf(any(srv.store.Get()))
	if stateType == nil {
		stateType = reflect.TypeOf((*S)(nil)).Elem()
	}

	partial := make(store.Partial, len(raw))
	for key, msg := range raw {
		if t, ok := merge.FieldType(stateType, key); ok {
			ptr := reflect.New(t)
			if err := json.Unmarshal(msg, ptr.Interface()); err != nil {
				return nil, errors.New("E012").
					WithDetailf("field %q: %v", key, err)
			}
			partial[key] = ptr.Elem().Interface()
			continue
		}

		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, errors.New("E040").
				WithDetailf("field %q", key).Wrap(err)
		}
		partial[key] = v
	}
	return partial, nil
}

type errorBody struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (srv *Server[S]) writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Message: err.Error()}
	if e := errors.FromError(err, "E040"); e != nil {
		body = errorBody{
			Code:       e.Code,
			Message:    e.Message,
			Detail:     e.Detail,
			Suggestion: e.Suggestion,
		}
		if e.Wrapped != nil && body.Detail == "" {
			body.Detail = e.Wrapped.Error()
		}
	}
	srv.logger.Warn("request rejected", "status", status, "code", body.Code, "error", err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logRequests logs each request at Debug once it completes.
func (srv *Server[S]) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		srv.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
