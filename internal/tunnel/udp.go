package tunnel

import (
	"log/slog"
	"net"
)

// udpTransport is a Transport backed by the relay's single bound UDP
// socket plus a remembered remote address; Send always targets that
// address via the shared socket, matching §4.H's single-socket UDP design.
type udpTransport struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

func (t *udpTransport) Send(msg []byte) error {
	_, err := t.conn.WriteToUDP(msg, t.addr)
	return err
}

func (t *udpTransport) Close() error { return nil } // the shared socket outlives any one tunnel

func (t *udpTransport) Key() string { return t.addr.String() }

// RunUDPListener reads from conn, a UDP socket the caller has already
// bound, and dispatches every datagram to relay
// until the socket is closed (by the caller cancelling its context and
// closing conn). Grounded on the teacher's single-goroutine read-loop
// idiom (internal/gameserver/client.go's read side), adapted from a
// per-connection TCP loop to one shared UDP socket shared by every tunnel.
func RunUDPListener(conn *net.UDPConn, relay *Relay) {
	buf := make([]byte, 65535)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		env, err := DecodeEnvelope(buf[:n])
		if err != nil {
			slog.Debug("tunnel: malformed udp datagram", "addr", addr, "error", err)
			continue
		}
		handleEnvelope(relay, env, &udpTransport{conn: conn, addr: addr})
	}
}

func handleEnvelope(relay *Relay, env Envelope, transport Transport) {
	switch env.Type {
	case MsgInitiate:
		tunnelID, err := relay.Initiate(env.Body, transport)
		if err != nil {
			slog.Debug("tunnel: initiate rejected", "error", err)
			return
		}
		msg := EncodeEnvelope(MsgInitiated, tunnelID, nil)
		if err := transport.Send(msg); err != nil {
			slog.Debug("tunnel: initiated reply failed", "tunnel", tunnelID, "error", err)
		}
	case MsgForward:
		if !relay.Touch(env.TunnelID, transport) {
			return
		}
		frame, _, err := DecodeFrame(env.Body)
		if err != nil {
			slog.Debug("tunnel: malformed forward frame", "tunnel", env.TunnelID, "error", err)
			return
		}
		relay.Forward(env.TunnelID, frame)
	case MsgKeepAlive:
		relay.Touch(env.TunnelID, transport)
	}
}
