package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"log/slog"
)

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/tickers", hub.Handler())
	srv := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tickers"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := NewHub(slog.Default())
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	waitForClients(t, hub, 1)
	hub.Broadcast(map[string]string{"type": "tickers"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var msg map[string]string
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if msg["type"] != "tickers" {
		t.Fatalf("unexpected payload %q", data)
	}
}

func TestHubRemovesClientOnDisconnect(t *testing.T) {
	hub := NewHub(slog.Default())
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	waitForClients(t, hub, 1)
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.Broadcast(map[string]string{"type": "tickers"})
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
}

func TestHubUpgradeRejectsPlainRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(slog.Default())
	router := gin.New()
	router.GET("/ws/tickers", hub.Handler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/tickers", nil)
	router.ServeHTTP(w, req)
	if w.Code == http.StatusOK {
		t.Fatalf("expected upgrade failure, got 200")
	}
}
