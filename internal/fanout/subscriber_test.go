package fanout

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/groundstation/servo/internal/vehicle"
)

func TestAttachPumpsSnapshotsAtTenHertz(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := vehicle.NewHub()
	hub.Replace(vehicle.NewState())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := Attach(w, r, logger, hub); err != nil {
			t.Errorf("Attach: %v", err)
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading first frame: %v", err)
	}
	var decoded vehicle.State
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decoding frame: %v", err)
	}

	// A second frame should arrive roughly one tick (100ms) later, not
	// immediately — confirming the pump samples on its own ticker rather
	// than pushing once per hub notification.
	start := time.Now()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("reading second frame: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("second frame arrived after %v, expected roughly a 100ms tick", elapsed)
	}
}

func TestAttachTerminatesOnClientClose(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := vehicle.NewHub()

	attachDone := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attachDone <- Attach(w, r, logger, hub)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	select {
	case err := <-attachDone:
		if err != nil {
			t.Fatalf("Attach returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Attach did not return after the client closed the connection")
	}
}
