package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

func TestLoadClientConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	body := `{"url":"http://file/rpc","version":"1.0","timeout":"3s","id_policy":"uuid"}`
	if err := os.WriteFile(filepath.Join(dir, ClientConfigName+".json"), []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("JRPC_CLIENT_TIMEOUT", "7s")
	t.Setenv("JRPC_CLIENT_HEADERS", "X-Env=1")

	conf, _, err := LoadClientConfig(dir, map[string]any{"version": "2.0"})
	if err != nil {
		t.Fatalf("LoadClientConfig() error = %v", err)
	}
	if conf.URL != "http://file/rpc" {
		t.Errorf("URL = %q, want the file value", conf.URL)
	}
	if conf.RPCVersion() != jsonrpc.V2 {
		t.Errorf("Version = %q, want the command line value", conf.Version)
	}
	if conf.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want the environment value", conf.Timeout)
	}
	if conf.Headers["X-Env"] != "1" {
		t.Errorf("Headers = %v", conf.Headers)
	}
	if _, ok := conf.IDGenerator().(jsonrpc.UUIDGenerator); !ok {
		t.Errorf("IDGenerator() = %T, want UUIDGenerator", conf.IDGenerator())
	}
	if conf.ConfigDir != dir {
		t.Errorf("ConfigDir = %q", conf.ConfigDir)
	}
}

func TestLoadClientConfigDefaults(t *testing.T) {
	conf, _, err := LoadClientConfig(t.TempDir(), map[string]any{"url": "tcp://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("LoadClientConfig() error = %v", err)
	}
	if conf.RPCVersion() != jsonrpc.V2 || conf.IDPolicy != IDPolicyCounter || conf.Timeout <= 0 {
		t.Errorf("defaults not applied: %+v", conf)
	}
	if _, ok := conf.IDGenerator().(*jsonrpc.Counter); !ok {
		t.Errorf("IDGenerator() = %T, want *Counter", conf.IDGenerator())
	}
}

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		conf    ClientConfig
		wantErr bool
	}{
		{"ok", ClientConfig{URL: "http://x", Version: "2.0"}, false},
		{"missing url", ClientConfig{Version: "2.0"}, true},
		{"bad version", ClientConfig{URL: "http://x", Version: "3.0"}, true},
		{"negative timeout", ClientConfig{URL: "http://x", Version: "1.0", Timeout: -time.Second}, true},
		{"bad id policy", ClientConfig{URL: "http://x", Version: "1.0", IDPolicy: "random"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.conf.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedactedHidesHeaderValues(t *testing.T) {
	c := &ClientConfig{Headers: map[string]string{"Authorization": "Bearer secret"}}
	r := c.Redacted()
	if r.Headers["Authorization"] != "***" {
		t.Errorf("Redacted() = %v", r.Headers)
	}
	if c.Headers["Authorization"] != "Bearer secret" {
		t.Errorf("Redacted() modified the receiver")
	}
}

func TestLoadServerConfig(t *testing.T) {
	conf, _, err := LoadServerConfig(t.TempDir(), map[string]any{"upstream": "http://up/rpc"})
	if err != nil {
		t.Fatalf("LoadServerConfig() error = %v", err)
	}
	if conf.GetHTTPAddr() != DefaultHTTPAddr {
		t.Errorf("HTTPAddr = %q", conf.HTTPAddr)
	}
	up := conf.UpstreamClient()
	if up == nil || up.URL != "http://up/rpc" || up.RPCVersion() != jsonrpc.V2 {
		t.Errorf("UpstreamClient() = %+v", up)
	}

	if _, _, err := LoadServerConfig(t.TempDir(), map[string]any{"upstream": "http://up", "upstream_version": "9"}); err == nil {
		t.Errorf("LoadServerConfig() should reject an invalid upstream version")
	}
}
