package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func newTestStreamServer(t *testing.T) (*httptest.Server, chan string) {
	t.Helper()

	outgoing := make(chan string, 8)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for payload := range outgoing {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(outgoing) })

	return server, outgoing
}

func wsURLProvider(server *httptest.Server) URLProvider {
	wsURL := "ws://" + strings.TrimPrefix(server.URL, "http://")
	return func(ctx context.Context) (string, error) {
		return wsURL, nil
	}
}

func TestStreamDeliversEvents(t *testing.T) {
	server, outgoing := newTestStreamServer(t)
	stream := NewStream(wsURLProvider(server), 1, 10*time.Millisecond, zap.NewNop())

	received := make(chan *Event, 1)
	unsubscribe := stream.OnEvent(func(event *Event) {
		select {
		case received <- event:
		default:
		}
	})
	defer unsubscribe()

	if err := stream.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer stream.Disconnect()

	outgoing <- `{"type": "message", "channel": "C1", "user": "U1", "text": "hi"}`

	select {
	case event := <-received:
		if event.Type != EventTypeMessage || event.Text != "hi" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the event")
	}

	if !stream.IsConnected() {
		t.Fatal("expected a connected stream")
	}
}

func TestStreamDisconnectDuringReconnect(t *testing.T) {
	// The long reconnect delay keeps the retry pending until Disconnect
	// has closed the stop channel.
	server, _ := newTestStreamServer(t)
	stream := NewStream(wsURLProvider(server), 3, time.Minute, zap.NewNop())

	if err := stream.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Killing the server makes the listener fail its read and schedule a
	// reconnect while Disconnect tears the stream down from another
	// goroutine.
	server.CloseClientConnections()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := stream.Disconnect(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	}()
	wg.Wait()

	if stream.IsConnected() {
		t.Fatal("expected a disconnected stream")
	}
}
