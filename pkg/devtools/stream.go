package devtools

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// client is one connected stream consumer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.conn.Close()
	})
}

func (srv *Server[S]) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(srv.opts.AllowOrigins) == 0 {
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
	for _, allowed := range srv.opts.AllowOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (srv *Server[S]) messageType() int {
	if srv.opts.Encoding == EncodingCBOR {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// handleStream upgrades the connection, sends the current state and then
// one frame per version until the client goes away.
func (srv *Server[S]) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}

	// Register and queue the first frame in one step so that no update
	// frame can overtake it.
	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		c.shutdown()
		return
	}
	hello := srv.snapshot(FrameSnapshot)
	hello.Client = c.id
	data, err := encodeFrame(hello, srv.opts.Encoding)
	if err != nil {
		srv.mu.Unlock()
		srv.logger.Warn("encode frame failed", "error", err)
		c.shutdown()
		return
	}
	c.send <- data
	srv.clients[c.id] = c
	srv.wg.Add(1)
	srv.mu.Unlock()

	srv.logger.Info("stream client connected", "client", c.id, "remote", r.RemoteAddr)

	go srv.writeLoop(c)

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	srv.removeClient(c)
	srv.logger.Info("stream client disconnected", "client", c.id)
}

func (srv *Server[S]) writeLoop(c *client) {
	defer srv.wg.Done()
	msgType := srv.messageType()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(msgType, data); err != nil {
				srv.removeClient(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (srv *Server[S]) removeClient(c *client) {
	srv.mu.Lock()
	delete(srv.clients, c.id)
	srv.mu.Unlock()
	c.shutdown()
}

// broadcast is the store listener: it queues the new state for every
// client. Clients that fall behind are disconnected.
func (srv *Server[S]) broadcast() {
	srv.mu.RLock()
	if len(srv.clients) == 0 {
		srv.mu.RUnlock()
		return
	}
	clients := make([]*client, 0, len(srv.clients))
	for _, c := range srv.clients {
		clients = append(clients, c)
	}
	srv.mu.RUnlock()

	data, err := encodeFrame(srv.snapshot(FrameUpdate), srv.opts.Encoding)
	if err != nil {
		srv.logger.Warn("encode frame failed", "error", err)
		return
	}

	for _, c := range clients {
		select {
		case c.send <- data:
		case <-c.done:
		default:
			srv.logger.Warn("stream client too slow, disconnecting", "client", c.id)
			srv.removeClient(c)
		}
	}
}
