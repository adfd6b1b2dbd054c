package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

func newWSServer(t *testing.T, handle func(conn *websocket.Conn)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var connections atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connections.Add(1)
		defer conn.Close()
		handle(conn)
	}))
	return srv, &connections
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv, connections := newWSServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			// the request itself comes back as the result
			resp := `{"id":0,"jsonrpc":"2.0","result":` + string(data) + `}`
			if err := conn.WriteMessage(websocket.TextMessage, []byte(resp)); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	ws := NewWebSocket(time.Second, map[string]string{"X-Token": "secret"})
	defer ws.Close()
	address := "ws" + strings.TrimPrefix(srv.URL, "http")

	client := jsonrpc.NewClient(ws, address)
	for i := 0; i < 2; i++ {
		got, err := jsonrpc.Call[map[string]any](context.Background(), client, "echo", jsonrpc.V2,
			jsonrpc.Arg{Name: "n", Value: i})
		if err != nil {
			t.Fatalf("Call() error = %v", err)
		}
		if got["method"] != "echo" {
			t.Errorf("echoed request = %v", got)
		}
	}
	if n := connections.Load(); n != 1 {
		t.Errorf("server saw %d connections, want 1", n)
	}
}

func TestWebSocketHandshakeRejected(t *testing.T) {
	srv, _ := newWSServer(t, func(conn *websocket.Conn) {})
	defer srv.Close()

	ws := NewWebSocket(time.Second, nil)
	defer ws.Close()

	_, err := ws.Send(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), []byte(`{}`))
	statusErr, ok := err.(*StatusError)
	if !ok || statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Send() error = %v, want 401 status error", err)
	}
}
