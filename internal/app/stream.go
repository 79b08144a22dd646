package app

import (
	"net/http"

	"github.com/gorilla/websocket"

	"collisionguard.dev/internal/wsconn"
)

// upgrader is shared across connections; spec.md treats channel
// identity as unauthenticated (Non-goal), so it accepts any origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamHandler upgrades GET /v1/stream to a websocket connection and
// runs its blocking read loop, handing each inbound frame to the
// ingress engine.
func (app *Application) streamHandler(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if err := app.Auth.Validate(r.Context(), token); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.Logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	conn := wsconn.New(ws, app.Logger)
	conn.Serve(app.Engine)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
