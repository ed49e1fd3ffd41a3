package tunnel

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// wsTransport adapts a gorilla/websocket connection to Transport. Per
// §4.H, the HTTP transport has no notion of address mobility (the
// connection itself IS the identity), so Key is the connection's pointer
// address stringified once at construction.
type wsTransport struct {
	conn *websocket.Conn
	key  string
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn, key: fmt.Sprintf("ws:%p", conn)}
}

func (t *wsTransport) Send(msg []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, msg)
}

func (t *wsTransport) Close() error { return t.conn.Close() }

func (t *wsTransport) Key() string { return t.key }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	// The relay is the only intended caller and the client presents its
	// association token in a header rather than relying on browser CORS,
	// so the origin check is intentionally permissive.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// associationHeader carries the session's association token on the
// upgrade request, per §4.H: "the session's association token is
// presented in a header".
const associationHeader = "X-Association-Token"

// ServeWebSocketTunnel upgrades r into a gorilla/websocket connection,
// reads the association token from associationHeader, and runs the same
// envelope dispatch loop RunUDPListener uses for the UDP transport.
func ServeWebSocketTunnel(w http.ResponseWriter, r *http.Request, relay *Relay, decodeToken func(string) []byte) {
	tokenHeader := r.Header.Get(associationHeader)
	if tokenHeader == "" {
		http.Error(w, "missing association token", http.StatusBadRequest)
		return
	}
	token := decodeToken(tokenHeader)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("tunnel: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	transport := newWSTransport(conn)
	tunnelID, err := relay.Initiate(token, transport)
	if err != nil {
		slog.Debug("tunnel: websocket initiate rejected", "error", err)
		return
	}
	defer relay.Dissociate(tunnelID)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		env, err := DecodeEnvelope(data)
		if err != nil {
			slog.Debug("tunnel: malformed websocket envelope", "tunnel", tunnelID, "error", err)
			continue
		}
		handleEnvelope(relay, env, transport)
	}
}
