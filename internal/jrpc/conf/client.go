package conf

import (
	"fmt"
	"time"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
	"github.com/sjzar/jrpc/pkg/transport"
)

const (
	IDPolicyCounter = "counter"
	IDPolicyUUID    = "uuid"
)

type ClientConfig struct {
	ConfigDir   string            `mapstructure:"-" json:"-"`
	URL         string            `mapstructure:"url" json:"url"`
	Version     string            `mapstructure:"version" json:"version"`
	Timeout     time.Duration     `mapstructure:"timeout" json:"timeout"`
	Headers     map[string]string `mapstructure:"headers" json:"headers,omitempty"`
	Compression bool              `mapstructure:"compression" json:"compression"`
	IDPolicy    string            `mapstructure:"id_policy" json:"id_policy"`
	StrictIDs   bool              `mapstructure:"strict_ids" json:"strict_ids"`
}

var ClientDefaults = map[string]any{
	"version":   string(jsonrpc.V2),
	"timeout":   transport.DefaultTimeout,
	"id_policy": IDPolicyCounter,
}

func (c *ClientConfig) Validate() error {
	if c.URL == "" {
		return errors.Config("url is required", nil)
	}
	if _, err := jsonrpc.ParseVersion(c.Version); err != nil {
		return errors.Config("invalid version", err)
	}
	if c.Timeout < 0 {
		return errors.Config(fmt.Sprintf("invalid timeout %s", c.Timeout), nil)
	}
	switch c.IDPolicy {
	case "", IDPolicyCounter, IDPolicyUUID:
	default:
		return errors.Config(fmt.Sprintf("unknown id policy %q", c.IDPolicy), nil)
	}
	return nil
}

func (c *ClientConfig) RPCVersion() jsonrpc.Version {
	v, err := jsonrpc.ParseVersion(c.Version)
	if err != nil {
		return jsonrpc.V2
	}
	return v
}

// IDGenerator 按 IDPolicy 返回请求 ID 生成器
func (c *ClientConfig) IDGenerator() jsonrpc.IDGenerator {
	if c.IDPolicy == IDPolicyUUID {
		return jsonrpc.UUIDGenerator{}
	}
	return jsonrpc.NewCounter()
}

func (c *ClientConfig) TransportOptions() transport.Options {
	return transport.Options{
		Timeout:     c.Timeout,
		Headers:     c.Headers,
		Compression: c.Compression,
	}
}

// Redacted 返回一份隐藏请求头值的副本，用于日志
func (c *ClientConfig) Redacted() ClientConfig {
	out := *c
	if len(c.Headers) > 0 {
		out.Headers = make(map[string]string, len(c.Headers))
		for k := range c.Headers {
			out.Headers[k] = "***"
		}
	}
	return out
}
