package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type testEvent struct {
	Type string `json:"type"`
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := New(nil)
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSSEStream(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}

	waitForClients(t, h, 1)
	h.Broadcast(testEvent{Type: "node_created"})

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before event")
			}
			if strings.HasPrefix(line, "data: ") {
				if line != `data: {"type":"node_created"}` {
					t.Errorf("unexpected event line %q", line)
				}
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestWebSocketStream(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(NewWebSocketHandler(h, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForClients(t, h, 1)
	h.Broadcast(testEvent{Type: "link_created"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got testEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "link_created" {
		t.Errorf("expected link_created, got %q", got.Type)
	}

	conn.Close()
	waitForClients(t, h, 0)
}

func TestWebSocketRejectsCrossOrigin(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(NewWebSocketHandler(h, nil))
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
}

func TestRunStopsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(nil)
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(h)
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	waitForClients(t, h, 1)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if h.ClientCount() != 0 {
		t.Errorf("expected clients dropped, have %d", h.ClientCount())
	}

	// joining a stopped hub fails fast
	if h.join(newClient("sse")) {
		t.Error("expected join to fail after stop")
	}
}
