// Package devtools serves a store over HTTP for inspection and debugging.
//
// Routes:
//
//	GET   /healthz   liveness probe
//	GET   /state     {"store", "version", "state"} (CBOR with Accept: application/cbor)
//	GET   /version   {"store", "version"}
//	PATCH /state     merge a JSON partial into the state
//	GET   /ws        live stream: one frame on connect, one per version
//	GET   /metrics   Prometheus metrics, when Options.Gatherer is set
//
// Stream frames are JSON text messages, or CBOR binary messages when
// Options.Encoding is "cbor".
//
// State patches are applied with Store.Set through Options.Dispatch, so
// a host event loop can keep being the store's only writer:
//
//	srv := devtools.New(counter, devtools.Options{Dispatch: root.Dispatch})
//	http.ListenAndServe(":4100", srv.Handler())
package devtools
