package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func setupHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	router := chi.NewRouter()
	RegisterRoutes(router, hub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	t.Cleanup(hub.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/events"
	return hub, wsURL
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count never reached %d", want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastsToSubscriber(t *testing.T) {
	hub, wsURL := setupHub(t)
	conn := dial(t, wsURL)
	waitForClients(t, hub, 1)

	hub.Publish("speaker.updated", map[string]any{"mac": "aa:bb:cc:00:00:01"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "speaker.updated", event.Type)
	require.NotEmpty(t, event.Timestamp)

	payload, ok := event.Payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "aa:bb:cc:00:00:01", payload["mac"])
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub, wsURL := setupHub(t)
	first := dial(t, wsURL)
	second := dial(t, wsURL)
	waitForClients(t, hub, 2)

	hub.Publish("group.created", map[string]any{"name": "Living"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event Event
		require.NoError(t, conn.ReadJSON(&event))
		require.Equal(t, "group.created", event.Type)
	}
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub, wsURL := setupHub(t)
	conn := dial(t, wsURL)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Publishing with no subscribers must not block or panic.
	hub.Publish("speaker.updated", nil)
}
