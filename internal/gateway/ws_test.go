package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestWebSocketDeliversMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		msg := Message{ChannelID: "chan-1", UserID: "u1", Text: "!help"}
		if err := wsjson.Write(r.Context(), conn, &msg); err != nil {
			return
		}
		// Hold the connection until the client closes it.
		<-conn.CloseRead(r.Context()).Done()
	}))
	defer srv.Close()

	received := make(chan *Message, 1)
	var mu sync.Mutex
	var states []WebSocketState

	ws := NewWebSocket("ws://"+strings.TrimPrefix(srv.URL, "http://"), 0)
	ws.OnStateChange(func(state WebSocketState) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	})
	ws.OnMessage(func(m *Message) {
		select {
		case received <- m:
		default:
		}
	})

	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	select {
	case m := <-received:
		if m.ChannelID != "chan-1" || m.UserID != "u1" || m.Text != "!help" {
			t.Fatalf("unexpected message: %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	if ws.State() != WSStateConnected {
		t.Fatalf("expected connected state, got %s", ws.State())
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Close(closeCtx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	sawConnected := false
	for _, s := range states {
		if s == WSStateConnected {
			sawConnected = true
		}
	}
	if !sawConnected {
		t.Fatalf("state callback never saw connected: %v", states)
	}
}

func TestWebSocketConnectFailureWithoutReconnect(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws", 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err == nil {
		t.Fatal("expected dial error")
	}
	if ws.State() != WSStateFailed {
		t.Fatalf("expected failed state, got %s", ws.State())
	}
}
