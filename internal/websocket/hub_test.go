package websocket

import (
	"testing"
	"time"
)

func TestHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Mock client
	client := &Client{
		hub:  hub,
		send: make(chan []byte, 1),
	}

	// Test registration
	hub.register <- client
	if len(hub.clients) != 1 {
		t.Fatalf("Expected 1 client after registration, got %d", len(hub.clients))
	}

	// Test broadcast of a log entry payload
	hub.Broadcast(map[string]string{"message": "✅ Pushed: Merlot", "level": "success"})

	select {
	case received := <-client.send:
		want := `{"level":"success","message":"✅ Pushed: Merlot"}`
		if string(received) != want {
			t.Errorf("Client received wrong message: got %s, want %s", received, want)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Client did not receive broadcast message in time")
	}

	// Test unregistration
	hub.unregister <- client
	// Allow the hub to process the unregister message
	time.Sleep(10 * time.Millisecond)
	if len(hub.clients) != 0 {
		t.Fatalf("Expected 0 clients after unregistration, got %d", len(hub.clients))
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// A send buffer of zero means the first broadcast already overflows.
	client := &Client{hub: hub, send: make(chan []byte)}
	hub.register <- client

	hub.Broadcast(map[string]string{"message": "x"})
	time.Sleep(10 * time.Millisecond)
	if len(hub.clients) != 0 {
		t.Fatalf("Expected slow client to be dropped, still have %d", len(hub.clients))
	}
}
