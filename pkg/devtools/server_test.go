package devtools

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vstore/pkg/observe"
	"github.com/vango-dev/vstore/pkg/store"
)

type counter struct {
	Count int      `json:"count"`
	Label string   `json:"label"`
	Tags  []string `json:"tags,omitempty"`
}

type counterFrame struct {
	Type    string  `json:"type"`
	Store   string  `json:"store"`
	Client  string  `json:"client"`
	Version uint64  `json:"version"`
	State   counter `json:"state"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func newServer(t *testing.T, opts Options) (*store.Store[counter], *Server[counter], *httptest.Server) {
	t.Helper()
	s := store.New(counter{Label: "clicks"}, store.WithName("counter"))
	srv := New(s, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return s, srv, ts
}

func patch(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPatch, url+"/state", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealth(t *testing.T) {
	_, _, ts := newServer(t, Options{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("GET /healthz = %d %q", resp.StatusCode, body)
	}
}

func TestGetState(t *testing.T) {
	s, _, ts := newServer(t, Options{})
	_ = s.Set(store.Partial{"Count": 4})

	resp, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var frame counterFrame
	decode(t, resp.Body, &frame)
	if frame.Store != "counter" || frame.Version != 1 {
		t.Errorf("frame = %+v, want store counter at version 1", frame)
	}
	if frame.State.Count != 4 || frame.State.Label != "clicks" {
		t.Errorf("state = %+v", frame.State)
	}
}

func TestGetStateCBOR(t *testing.T) {
	_, _, ts := newServer(t, Options{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/state", nil)
	req.Header.Set("Accept", "application/cbor")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/cbor" {
		t.Errorf("Content-Type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	var frame counterFrame
	if err := cbor.Unmarshal(data, &frame); err != nil {
		t.Fatalf("cbor.Unmarshal: %v", err)
	}
	if frame.State.Label != "clicks" {
		t.Errorf("state = %+v", frame.State)
	}
}

func TestGetVersion(t *testing.T) {
	s, _, ts := newServer(t, Options{})
	_ = s.Set(store.Partial{"Count": 1})
	_ = s.Set(store.Partial{"Count": 2})

	resp, err := http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Version uint64 `json:"version"`
	}
	decode(t, resp.Body, &body)
	if body.Version != 2 {
		t.Errorf("version = %d, want 2", body.Version)
	}
}

func TestPatchState(t *testing.T) {
	s, _, ts := newServer(t, Options{})

	resp := patch(t, ts.URL, `{"count": 7, "tags": ["a", "b"]}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH /state = %d", resp.StatusCode)
	}

	var frame counterFrame
	decode(t, resp.Body, &frame)
	if frame.Version != 1 || frame.State.Count != 7 {
		t.Errorf("frame = %+v", frame)
	}

	got := s.Get()
	if got.Count != 7 || got.Label != "clicks" || len(got.Tags) != 2 {
		t.Errorf("state = %+v", got)
	}
}

func TestPatchStateRejected(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		opts       Options
		wantStatus int
		wantCode   string
	}{
		{"not json", `{"count":`, Options{}, http.StatusBadRequest, "E040"},
		{"not an object", `[1, 2]`, Options{}, http.StatusBadRequest, "E040"},
		{"null", `null`, Options{}, http.StatusBadRequest, "E040"},
		{"unknown field", `{"nope": 1}`, Options{}, http.StatusBadRequest, "E011"},
		{"wrong type", `{"count": "seven"}`, Options{}, http.StatusBadRequest, "E012"},
		{"read only", `{"count": 1}`, Options{ReadOnly: true}, http.StatusMethodNotAllowed, "E041"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, ts := newServer(t, tt.opts)

			resp := patch(t, ts.URL, tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body errorResponse
			decode(t, resp.Body, &body)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q (%+v)", body.Code, tt.wantCode, body)
			}
			if s.Version() != 0 || s.Get().Count != 0 {
				t.Error("rejected patch must not change the store")
			}
		})
	}
}

func TestPatchUsesDispatch(t *testing.T) {
	var calls atomic.Int32
	queue := make(chan func(), 1)
	go func() {
		for fn := range queue {
			calls.Add(1)
			fn()
		}
	}()
	defer close(queue)

	s, _, ts := newServer(t, Options{Dispatch: func(fn func()) { queue <- fn }})

	resp := patch(t, ts.URL, `{"label": "taps"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("dispatch calls = %d, want 1", calls.Load())
	}
	if s.Get().Label != "taps" {
		t.Errorf("Label = %q", s.Get().Label)
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observe.NewMetrics(observe.WithRegistry(reg))

	s := store.New(counter{}, store.WithName("counter"), store.WithObserver(metrics))
	srv := New(s, Options{Gatherer: reg})
	defer srv.Close()
	_ = s.Set(store.Partial{"Count": 1})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `vstore_updates_total{result="notified",store="counter"} 1`) {
		t.Errorf("metrics output missing update counter:\n%s", rec.Body.String())
	}
}

func TestNoMetricsRouteWithoutGatherer(t *testing.T) {
	s := store.New(counter{})
	srv := New(s, Options{})
	defer srv.Close()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404", rec.Code)
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	s := store.New(counter{})
	srv := New(s, Options{})
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	srv.Close()
	srv.Close()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after Close", s.Len())
	}
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func readFrame(t *testing.T, conn *websocket.Conn, wantType int, unmarshal func([]byte, any) error) counterFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msgType != wantType {
		t.Errorf("message type = %d, want %d", msgType, wantType)
	}
	var frame counterFrame
	if err := unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return frame
}

func waitForClients(t *testing.T, srv *Server[counter], n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", srv.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamJSON(t *testing.T) {
	s, srv, ts := newServer(t, Options{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	hello := readFrame(t, conn, websocket.TextMessage, json.Unmarshal)
	if hello.Type != FrameSnapshot || hello.Client == "" || hello.Version != 0 {
		t.Errorf("hello = %+v", hello)
	}
	if srv.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", srv.Clients())
	}

	_ = s.Set(store.Partial{"Count": 1})
	update := readFrame(t, conn, websocket.TextMessage, json.Unmarshal)
	if update.Type != FrameUpdate || update.Version != 1 || update.State.Count != 1 {
		t.Errorf("update = %+v", update)
	}

	// No notification, no frame: the next frame is for version 2.
	_ = s.Set(store.Partial{"Count": 1})
	_ = s.Set(store.Partial{"Count": 2})
	next := readFrame(t, conn, websocket.TextMessage, json.Unmarshal)
	if next.Version != 2 || next.State.Count != 2 {
		t.Errorf("next = %+v", next)
	}
}

func TestStreamCBOR(t *testing.T) {
	s, _, ts := newServer(t, Options{Encoding: EncodingCBOR})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	hello := readFrame(t, conn, websocket.BinaryMessage, cbor.Unmarshal)
	if hello.State.Label != "clicks" {
		t.Errorf("hello = %+v", hello)
	}

	_ = s.Set(store.Partial{"Label": "taps"})
	update := readFrame(t, conn, websocket.BinaryMessage, cbor.Unmarshal)
	if update.State.Label != "taps" || update.Version != 1 {
		t.Errorf("update = %+v", update)
	}
}

func TestStreamClientsAreDistinct(t *testing.T) {
	_, srv, ts := newServer(t, Options{})

	a, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatal(err)
	}

	ha := readFrame(t, a, websocket.TextMessage, json.Unmarshal)
	hb := readFrame(t, b, websocket.TextMessage, json.Unmarshal)
	if ha.Client == hb.Client {
		t.Error("each client should get its own id")
	}
	waitForClients(t, srv, 2)

	b.Close()
	waitForClients(t, srv, 1)
}

func TestStreamOrigin(t *testing.T) {
	_, _, ts := newServer(t, Options{AllowOrigins: []string{"http://allowed.test"}})

	header := http.Header{"Origin": []string{"http://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	if err == nil {
		t.Fatal("Dial should fail for a disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	header.Set("Origin", "http://allowed.test")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	if err != nil {
		t.Fatalf("Dial with an allowed origin: %v", err)
	}
	conn.Close()
}

func TestCloseDisconnectsClients(t *testing.T) {
	_, srv, ts := newServer(t, Options{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readFrame(t, conn, websocket.TextMessage, json.Unmarshal)

	srv.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("ReadMessage should fail after Close")
	}
}
