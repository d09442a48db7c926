package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatstory/engine/internal/events"
)

func TestWSEventsFeed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", wsEventsHandler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Live events arrive after the recent-history replay. Emit the
	// marker each round: the first may race the handler's subscribe.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events.Emit("info", "scene.displayed", "", map[string]any{"marker": "ws-test"})
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		var e events.Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("event frame is not JSON: %v", err)
		}
		if e.Fields["marker"] == "ws-test" {
			return
		}
	}
	t.Fatal("marker event never arrived on the feed")
}
