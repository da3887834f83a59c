package registry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/broadwave/pubsub/internals/config"
	"github.com/broadwave/pubsub/internals/connhandle"
	"github.com/broadwave/pubsub/internals/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

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

func newTestRegistry() *Registry {
	return New(config.NewConfig(), nil)
}

func TestRegistry_CreateTopic(t *testing.T) {
	r := newTestRegistry()

	require.NoError(t, r.CreateTopic("test-topic"))
	require.Len(t, r.ListTopics(), 1)

	require.ErrorIs(t, r.CreateTopic("test-topic"), ErrTopicAlreadyExists)
}

func TestRegistry_DeleteTopic(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateTopic("test-topic"))

	require.NoError(t, r.DeleteTopic("test-topic"))
	require.Len(t, r.ListTopics(), 0)

	require.ErrorIs(t, r.DeleteTopic("test-topic"), ErrTopicNotFound)
}

func TestRegistry_DeleteTopicNotifiesAndClosesSubscribers(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateTopic("e2e"))

	handle, clientConn, cleanup := dialHandle(t)
	defer cleanup()

	require.NoError(t, r.Subscribe(handle, "e2e", "client-1", 0))

	require.NoError(t, r.DeleteTopic("e2e"))

	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := clientConn.ReadMessage()
	require.NoError(t, err)

	var got models.ServerMsg
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, models.OutInfo, got.Type)
	require.Equal(t, "topic_deleted", got.Msg)

	require.True(t, handle.IsClosed())
}

func TestRegistry_SubscribeTopicNotFound(t *testing.T) {
	r := newTestRegistry()
	handle, _, cleanup := dialHandle(t)
	defer cleanup()

	require.ErrorIs(t, r.Subscribe(handle, "missing", "client-1", 0), ErrTopicNotFound)
}

func TestRegistry_UnsubscribeIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateTopic("t"))
	handle, _, cleanup := dialHandle(t)
	defer cleanup()

	require.NoError(t, r.Subscribe(handle, "t", "client-1", 0))
	require.NoError(t, r.Unsubscribe(handle, "t"))
	require.NoError(t, r.Unsubscribe(handle, "t"))
}

func TestRegistry_PublishFanOut(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateTopic("e2e"))

	handleA, connA, cleanupA := dialHandle(t)
	defer cleanupA()
	handleB, connB, cleanupB := dialHandle(t)
	defer cleanupB()

	require.NoError(t, r.Subscribe(handleA, "e2e", "A", 0))
	require.NoError(t, r.Subscribe(handleB, "e2e", "B", 0))

	for _, id := range []string{"m0", "m1", "m2"} {
		_, err := r.Publish("e2e", models.Message{ID: id})
		require.NoError(t, err)
	}

	for _, conn := range []*websocket.Conn{connA, connB} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
		for _, want := range []string{"m0", "m1", "m2"} {
			_, data, err := conn.ReadMessage()
			require.NoError(t, err)
			var got models.ServerMsg
			require.NoError(t, json.Unmarshal(data, &got))
			require.Equal(t, want, got.Message.ID)
		}
	}
}

func TestRegistry_PublishTopicNotFound(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Publish("missing", models.Message{ID: "m0"})
	require.ErrorIs(t, err, ErrTopicNotFound)
}

func TestRegistry_PublisherReceivesOwnEventOnlyIfSubscribed(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateTopic("e2e"))

	_, err := r.Publish("e2e", models.Message{ID: "m0"})
	require.NoError(t, err)

	stats := r.Stats()
	require.Equal(t, uint64(1), stats["e2e"].Messages)
	require.Equal(t, uint64(0), stats["e2e"].Delivered)
}

func TestRegistry_HandleDisconnectRemovesFromAllTopics(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateTopic("t1"))
	require.NoError(t, r.CreateTopic("t2"))

	handle, _, cleanup := dialHandle(t)
	defer cleanup()

	require.NoError(t, r.Subscribe(handle, "t1", "client-1", 0))
	require.NoError(t, r.Subscribe(handle, "t2", "client-1", 0))

	r.HandleDisconnect(handle)

	for _, name := range []string{"t1", "t2"} {
		infos := r.ListTopics()
		for _, info := range infos {
			if info.Name == name {
				require.Equal(t, 0, info.Subscribers)
			}
		}
	}
}

func TestRegistry_DeleteThenOperationsAreNotFound(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateTopic("t"))
	require.NoError(t, r.DeleteTopic("t"))

	handle, _, cleanup := dialHandle(t)
	defer cleanup()

	require.ErrorIs(t, r.Subscribe(handle, "t", "c", 0), ErrTopicNotFound)
	require.ErrorIs(t, r.Unsubscribe(handle, "t"), ErrTopicNotFound)
	_, err := r.Publish("t", models.Message{ID: "m"})
	require.ErrorIs(t, err, ErrTopicNotFound)
}

func TestRegistry_Health(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateTopic("t1"))
	require.NoError(t, r.CreateTopic("t2"))

	handle, _, cleanup := dialHandle(t)
	defer cleanup()
	require.NoError(t, r.Subscribe(handle, "t1", "c", 0))
	require.NoError(t, r.Subscribe(handle, "t2", "c", 0))

	h := r.Health()
	require.Equal(t, 2, h.Topics)
	require.Equal(t, 2, h.Subscribers)
}

func TestRegistry_Close(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.CreateTopic(fmt.Sprintf("t-%d", i)))
	}
	r.Close()
	require.Len(t, r.ListTopics(), 0)
}

func TestRegistry_ConcurrentCreateTopic(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = r.CreateTopic(fmt.Sprintf("concurrent-%d", id))
		}(i)
	}
	wg.Wait()
	require.Len(t, r.ListTopics(), 10)
}
