// Package wsconn adapts a gorilla/websocket connection to
// internal/session.Channel, and runs the per-connection read loop that
// feeds the ingress engine. Grounded on the retrieved pack's
// websocket-serving repos (gorilla/websocket is used the same way in
// rhino11-trafficsim and flightctl-flightctl: one goroutine per
// connection reading frames, a mutex-guarded writer).
package wsconn

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"collisionguard.dev/internal/session"
)

// writeTimeout bounds how long a single outbound frame write may block,
// so one slow reader cannot stall the dispatcher (spec.md §5
// backpressure policy: drop rather than block).
const writeTimeout = 2 * time.Second

// Handler is implemented by internal/ingress.Engine: one call per
// inbound frame. The channel argument is the same *Conn the frame
// arrived on, passed as a session.Channel so the handler can bind it
// into the session registry without wsconn depending on ingress.
type Handler interface {
	HandleMessage(ch session.Channel, payload []byte)
	HandleDisconnect(ch session.Channel)
}

// Conn wraps one client websocket connection. It implements
// session.Channel, and is safe to call Send from any goroutine even
// after Close.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	closed  bool
}

// New wraps an already-upgraded websocket connection.
func New(ws *websocket.Conn, logger *slog.Logger) *Conn {
	return &Conn{ws: ws, logger: logger}
}

// Send implements session.Channel. It is a safe no-op once the
// connection has closed (spec.md §5 "Subsequent sends to the closed
// channel must be safe no-ops").
func (c *Conn) Send(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, message)
}

// Serve runs the blocking per-connection read loop: it reads frames
// sequentially and hands each to handler.HandleMessage synchronously,
// preserving per-session ordering (spec.md §5). It returns once the
// connection closes or errors.
func (c *Conn) Serve(handler Handler) {
	defer c.close()
	defer handler.HandleDisconnect(c)
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		handler.HandleMessage(c, payload)
	}
}

func (c *Conn) close() {
	c.writeMu.Lock()
	c.closed = true
	c.writeMu.Unlock()
	_ = c.ws.Close()
}
