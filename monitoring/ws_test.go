package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	conn := dialHub(t, hub)
	hub.Broadcast([]byte(`{"hello":"wine"}`))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(message) != `{"hello":"wine"}` {
		t.Fatalf("expected broadcast payload, got %s", message)
	}
}

func TestBroadcasterStreamsSnapshots(t *testing.T) {
	collector := NewCollector()
	collector.RecordPrediction(1, false)

	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	broadcaster := NewBroadcaster(hub, collector, 50*time.Millisecond, nil)
	go broadcaster.Run()
	defer broadcaster.Stop()

	conn := dialHub(t, hub)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var msg StreamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != "metrics" {
		t.Errorf("expected type metrics, got %q", msg.Type)
	}
	var snap Snapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.PredictionsByClass[1] != 1 {
		t.Errorf("expected snapshot to carry prediction counts, got %+v", snap.PredictionsByClass)
	}
}
