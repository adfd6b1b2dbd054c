package stub

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
	"github.com/sjzar/jrpc/pkg/transport"
)

// Serve 处理 l 上每个连接中按行分隔的请求，直到 ctx 结束或 l 被关闭
func (s *Stub) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Stub) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	r := bufio.NewReaderSize(conn, 64<<10)
	for {
		line, err := transport.ReadLine(r, MaxRequestSize)
		var resp []byte
		switch {
		case stderrors.Is(err, transport.ErrLineTooLong):
			log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("stub request line too large")
			resp = tooLargeResponse
			err = nil
		default:
			if line = bytes.TrimSpace(line); len(line) > 0 {
				resp = s.Respond(ctx, line)
			}
		}
		if resp != nil {
			if _, werr := conn.Write(append(resp, '\n')); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

var tooLargeResponse, _ = json.Marshal(jsonrpc.NewErrorResponse[any](jsonrpc.V2, jsonrpc.NullID(),
	errors.ToRPCError(errors.InvalidRequest("request too large"), "")))

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebSocket GET /ws 处理函数
// 每个文本帧是一个请求，以一个文本帧应答
func (s *Stub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxRequestSize)

	ctx := c.Request.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, s.Respond(ctx, data)); err != nil {
			return
		}
	}
}
