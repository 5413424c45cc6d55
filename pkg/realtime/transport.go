package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is the persistent duplex connection a session owns.
type Transport interface {
	// ReadMessage blocks for the next wire message.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one wire message.
	WriteMessage(data []byte) error

	// CloseGraceful performs the normal-closure handshake, bounded by
	// the deadline, then closes the connection.
	CloseGraceful(deadline time.Time) error

	// Close force-closes the connection.
	Close() error
}

// Dialer opens transports. Injected so sessions can be tested without
// a network.
type Dialer interface {
	Dial(ctx context.Context, target DialTarget) (Transport, error)
}

// WebSocketDialer opens gorilla/websocket transports.
type WebSocketDialer struct {
	// HandshakeTimeout bounds the WebSocket handshake. Defaults to
	// 10 seconds.
	HandshakeTimeout time.Duration
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, target DialTarget) (Transport, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		Subprotocols:     target.Subprotocols,
	}
	conn, resp, err := dialer.DialContext(ctx, target.URL, target.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (status %d)", target.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", target.URL, err)
	}
	return &wsTransport{conn: conn}, nil
}

// wsTransport adapts a gorilla connection to the Transport contract.
// Writes are serialized; gorilla connections allow one concurrent
// writer.
type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// ReadMessage implements Transport.
func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

// WriteMessage implements Transport.
func (t *wsTransport) WriteMessage(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// CloseGraceful implements Transport.
func (t *wsTransport) CloseGraceful(deadline time.Time) error {
	t.writeMu.Lock()
	err := t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline)
	t.writeMu.Unlock()
	if err != nil {
		t.conn.Close()
		return err
	}

	// Give the peer until the deadline to answer the close handshake.
	t.conn.SetReadDeadline(deadline)
	return t.conn.Close()
}

// Close implements Transport.
func (t *wsTransport) Close() error {
	return t.conn.Close()
}
