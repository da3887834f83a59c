// Package connhandle provides the non-owning handle a subscriber
// record uses to reach its connection. The transport layer is the
// sole owner of the underlying *websocket.Conn; the broker only ever
// holds a *Handle, which exists to break the subscriber<->connection
// reference cycle described by the design notes: the broker owns
// subscriber records, the transport owns connections, and a Handle is
// the one-way link between them, usable only to emit envelopes or
// request a close.
package connhandle

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/broadwave/pubsub/internals/models"
)

// Handle wraps one WebSocket connection. All writes to the underlying
// connection — direct acks/pongs as well as broker-driven fan-out —
// go through Send, which serializes them with a mutex. gorilla's
// websocket.Conn permits at most one concurrent writer; Handle is that
// writer for its connection, regardless of how many topics the
// connection is subscribed to.
type Handle struct {
	ID   string
	conn *websocket.Conn

	writeMu      sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// New wraps conn, identified by id (the session's connection id), with
// the given write deadline applied before every send.
func New(id string, conn *websocket.Conn, writeTimeout time.Duration) *Handle {
	return &Handle{
		ID:           id,
		conn:         conn,
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// Send writes msg to the connection as JSON. Best-effort: on error it
// returns the error but does not retry and does not close the
// connection — the caller (the broker's drain loop) treats this as a
// fire-and-forget emit, per the transport's best-effort write policy.
func (h *Handle) Send(msg models.ServerMsg) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	select {
	case <-h.closed:
		return websocket.ErrCloseSent
	default:
	}

	if h.writeTimeout > 0 {
		_ = h.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	}
	return h.conn.WriteJSON(msg)
}

// Close closes the underlying connection. Safe to call more than
// once and concurrently with Send.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		close(h.closed)
		_ = h.conn.Close()
	})
}

// IsClosed reports whether Close has already run.
func (h *Handle) IsClosed() bool {
	select {
	case <-h.closed:
		return true
	default:
		return false
	}
}
