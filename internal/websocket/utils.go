package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}

// Conn serializes writes to a gorilla connection, which allows only one
// concurrent writer. Reads stay with the handler's loop.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewConn wraps an upgraded connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes v as JSON.
func (c *Conn) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteTyped(c.ws, v)
}

// SendError writes an ErrorResponse.
func (c *Conn) SendError(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteError(c.ws, msg)
}

// Close sends a close frame with reason and closes the connection, which
// ends the handler's read loop.
func (c *Conn) Close(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return c.ws.Close()
}
