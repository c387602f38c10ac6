package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents one live connection. A user has at most one; a newer
// connection for the same user supersedes it (see Registry). All writes to
// the socket go through Send and the single writer pump, so gorilla's
// no-concurrent-writes rule holds by construction.
type Client struct {
	ID     string          // connection id, unique per process
	UserID string          // set at admission, never changes
	WS     *websocket.Conn // nil in unit tests
	Send   chan []byte     // outbound queue drained by WritePump

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(id, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Enqueue offers a payload to the connection without blocking. A closed or
// slow client drops the payload; delivery is best-effort by contract.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		return true
	default:
		// Slow client: skip rather than block fan-out
		return false
	}
}

// Close shuts the connection down once; later calls are no-ops. A close
// control frame with the reason is attempted first so the peer can tell
// supersession from an ordinary drop.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.WS != nil {
			deadline := time.Now().Add(time.Second)
			_ = c.WS.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
			_ = c.WS.Close()
		}
	})
}

// Done closes when the client is shut down; pending pushes select on it.
func (c *Client) Done() <-chan struct{} { return c.done }

// WritePump is the single writer goroutine for this connection. It drains
// Send in FIFO order and keeps the connection alive with pings.
func (c *Client) WritePump(pingPeriod, writeWait time.Duration) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-t.C:
			if err := c.WS.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}
