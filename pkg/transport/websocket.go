package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// WebSocket sends each request as one text frame and reads the next frame
// as its response. Like Stream it keeps one serialized connection per
// address.
type WebSocket struct {
	dialer  *websocket.Dialer
	headers http.Header
	conns   *xsync.MapOf[string, *wsConn]
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebSocket(handshakeTimeout time.Duration, headers map[string]string) *WebSocket {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &WebSocket{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		headers: h,
		conns:   xsync.NewMapOf[string, *wsConn](),
	}
}

func (w *WebSocket) Send(ctx context.Context, address string, request []byte) ([]byte, error) {
	wc, _ := w.conns.LoadOrCompute(address, func() *wsConn { return &wsConn{} })
	wc.mu.Lock()
	defer wc.mu.Unlock()

	if wc.conn == nil {
		conn, resp, err := w.dialer.DialContext(ctx, address, w.headers)
		if err != nil {
			if resp != nil {
				return nil, &StatusError{StatusCode: resp.StatusCode}
			}
			return nil, err
		}
		log.Debug().Str("address", address).Msg("websocket connected")
		wc.conn = conn
	}

	resp, err := wc.roundTrip(ctx, request)
	if err != nil {
		wc.reset()
		return nil, contextError(ctx, err)
	}
	return resp, nil
}

func (wc *wsConn) roundTrip(ctx context.Context, request []byte) ([]byte, error) {
	deadline, _ := ctx.Deadline()
	if err := wc.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := wc.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = wc.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := wc.conn.WriteMessage(websocket.TextMessage, request); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	for {
		msgType, data, err := wc.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

func (wc *wsConn) reset() {
	if wc.conn != nil {
		_ = wc.conn.Close()
	}
	wc.conn = nil
}

func (w *WebSocket) Close() error {
	w.conns.Range(func(address string, wc *wsConn) bool {
		wc.mu.Lock()
		if wc.conn != nil {
			_ = wc.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
		}
		wc.reset()
		wc.mu.Unlock()
		w.conns.Delete(address)
		return true
	})
	return nil
}
