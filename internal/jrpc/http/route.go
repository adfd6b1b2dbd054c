package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjzar/jrpc/pkg/version"
)

func (s *Service) initRouter() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.router.POST("/rpc", s.stub.Handle)
	s.router.GET("/ws", s.stub.HandleWebSocket)

	if s.mcpStreamableServer != nil {
		s.router.Any("/mcp", func(c *gin.Context) {
			s.mcpStreamableServer.ServeHTTP(c.Writer, c.Request)
		})
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

func (s *Service) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"version": version.Version,
		"methods": s.stub.Methods(),
	}
	if s.upstream != nil {
		resp["upstream"] = s.upstream.Client.Address()
	}
	c.JSON(http.StatusOK, resp)
}
