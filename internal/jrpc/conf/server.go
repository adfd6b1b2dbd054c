package conf

import (
	"time"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
	"github.com/sjzar/jrpc/pkg/transport"
)

const (
	DefaultHTTPAddr = "127.0.0.1:5040"
)

type ServerConfig struct {
	ConfigDir       string            `mapstructure:"-" json:"-"`
	HTTPAddr        string            `mapstructure:"http_addr" json:"http_addr"`
	StreamAddr      string            `mapstructure:"stream_addr" json:"stream_addr,omitempty"`
	Fixtures        string            `mapstructure:"fixtures" json:"fixtures,omitempty"`
	Upstream        string            `mapstructure:"upstream" json:"upstream,omitempty"`
	UpstreamVersion string            `mapstructure:"upstream_version" json:"upstream_version"`
	UpstreamTimeout time.Duration     `mapstructure:"upstream_timeout" json:"upstream_timeout"`
	UpstreamHeaders map[string]string `mapstructure:"upstream_headers" json:"-"`
}

var ServerDefaults = map[string]any{
	"http_addr":        DefaultHTTPAddr,
	"upstream_version": string(jsonrpc.V2),
	"upstream_timeout": transport.DefaultTimeout,
}

func (c *ServerConfig) Validate() error {
	if c.Upstream != "" {
		if _, err := jsonrpc.ParseVersion(c.UpstreamVersion); err != nil {
			return errors.Config("invalid upstream_version", err)
		}
	}
	return nil
}

func (c *ServerConfig) GetHTTPAddr() string {
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	return c.HTTPAddr
}

// UpstreamClient 返回 MCP 桥接使用的客户端配置，未配置上游时返回 nil
func (c *ServerConfig) UpstreamClient() *ClientConfig {
	if c.Upstream == "" {
		return nil
	}
	return &ClientConfig{
		URL:      c.Upstream,
		Version:  c.UpstreamVersion,
		Timeout:  c.UpstreamTimeout,
		Headers:  c.UpstreamHeaders,
		IDPolicy: IDPolicyCounter,
	}
}
