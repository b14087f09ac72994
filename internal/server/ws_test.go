package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mindreader/internal/affect"
	"github.com/ayusman/mindreader/internal/publish"
)

func TestStateHub_SlowClientDoesNotBlockBroadcast(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping socket test")
	}

	hub := NewStateHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	// The client never reads, so the socket buffers fill up.
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("Clients() = %d, want 1", hub.Clients())
	}

	u := publish.Update{State: affect.StateNormal, Detail: strings.Repeat("x", 128<<10)}

	start := time.Now()
	for i := 0; i < 200; i++ {
		hub.Broadcast(u)
	}
	if elapsed := time.Since(start); elapsed >= writeWait {
		t.Errorf("200 broadcasts took %v with a stalled client", elapsed)
	}

	deadline = time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != 0 {
		t.Errorf("Clients() = %d, want stalled client dropped", hub.Clients())
	}
}

func TestStateHub_CloseRejectsNewClients(t *testing.T) {
	hub := NewStateHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	hub.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected closed hub to drop the connection")
	}
	if n := hub.Clients(); n != 0 {
		t.Errorf("Clients() = %d, want 0", n)
	}
}
