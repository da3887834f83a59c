package subscriber

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/broadwave/pubsub/internals/connhandle"
	"github.com/broadwave/pubsub/internals/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialHandle spins up a local WebSocket server and returns a
// connhandle.Handle wrapping the server side of the connection, plus
// the client side so the test can read what was sent.
func dialHandle(t *testing.T) (*connhandle.Handle, *websocket.Conn, func()) {
	t.Helper()

	var serverConn *websocket.Conn
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConn = c
		close(ready)
		select {}
	}))

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+srv.URL[4:], nil)
	require.NoError(t, err)

	<-ready
	handle := connhandle.New("test-client", serverConn, time.Second)

	cleanup := func() {
		clientConn.Close()
		srv.Close()
	}
	return handle, clientConn, cleanup
}

func TestSubscriber_EnqueueDeliversToTransport(t *testing.T) {
	handle, clientConn, cleanup := dialHandle(t)
	defer cleanup()

	var delivered int64
	sub := New("client-1", handle, 10, func(n int) { atomic.AddInt64(&delivered, int64(n)) })
	defer sub.Close()

	dropped := sub.Enqueue("topic-a", models.Message{ID: "m0"})
	require.False(t, dropped)

	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := clientConn.ReadMessage()
	require.NoError(t, err)

	var got models.ServerMsg
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, models.OutEvent, got.Type)
	require.Equal(t, "topic-a", got.Topic)
	require.Equal(t, "m0", got.Message.ID)

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&delivered) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSubscriber_CloseStopsWriter(t *testing.T) {
	handle, _, cleanup := dialHandle(t)
	defer cleanup()

	var delivered int64
	sub := New("client-1", handle, 10, func(n int) { atomic.AddInt64(&delivered, int64(n)) })
	sub.Close()
	time.Sleep(10 * time.Millisecond) // let the writer goroutine observe stop

	// Enqueue after Close: the writer goroutine has exited, so no
	// further delivery happens even though the queue still accepts
	// the push.
	sub.Enqueue("t", models.Message{ID: "a"})
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int64(0), atomic.LoadInt64(&delivered))
}

func TestSubscriber_ClientIDIsInformational(t *testing.T) {
	handle, _, cleanup := dialHandle(t)
	defer cleanup()

	sub := New("whatever-client-id", handle, 4, nil)
	defer sub.Close()
	require.Equal(t, "whatever-client-id", sub.ClientID)
}
