package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/internal/jrpc/stub"
	"github.com/sjzar/jrpc/internal/metrics"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

type Config interface {
	GetHTTPAddr() string
}

// Upstream MCP 桥接转发的上游 JSON-RPC 服务
type Upstream struct {
	Client  *jsonrpc.Client
	Version jsonrpc.Version
}

type Service struct {
	conf     Config
	stub     *stub.Stub
	metrics  *metrics.Metrics
	upstream *Upstream

	mcpServer           *server.MCPServer
	mcpStreamableServer *server.StreamableHTTPServer

	router *gin.Engine
	server *http.Server
}

// NewService 创建 HTTP 服务
// upstream 为 nil 时不提供 /mcp
func NewService(conf Config, s *stub.Stub, m *metrics.Metrics, upstream *Upstream) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("Failed to set trusted proxies")
	}

	router.Use(
		errors.RecoveryMiddleware(),
		errors.ErrorHandlerMiddleware(),
		gin.LoggerWithWriter(log.Logger, "/health", "/metrics"),
		corsMiddleware(),
	)

	svc := &Service{
		conf:     conf,
		stub:     s,
		metrics:  m,
		upstream: upstream,
		router:   router,
	}
	if upstream != nil {
		svc.initMCPServer()
	}
	svc.initRouter()
	return svc
}

func (s *Service) Start() error {
	l, err := net.Listen("tcp", s.conf.GetHTTPAddr())
	if err != nil {
		return errors.Internal("listen "+s.conf.GetHTTPAddr(), err)
	}
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(l); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	log.Info().Msg("Starting HTTP server on " + l.Addr().String())
	return nil
}

func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}

	// 使用超时上下文优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shutdown HTTP server")
		return nil
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Service) GetRouter() *gin.Engine {
	return s.router
}
