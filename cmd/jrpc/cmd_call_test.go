package jrpc

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/jrpc/internal/jrpc/conf"
	"github.com/sjzar/jrpc/internal/jrpc/stub"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
	"github.com/sjzar/jrpc/pkg/util"
)

func newStubServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/rpc", stub.New(nil).Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL + "/rpc"
}

func TestRunCall(t *testing.T) {
	url := newStubServer(t)

	tests := []struct {
		name    string
		version string
		method  string
		args    []string
		want    string
	}{
		{"v2 named", "2.0", "subtract", []string{"subtrahend=5", "minuend=4"}, "-1\n"},
		{"v1 positional", "1.0", "multiply", []string{"6", "7"}, "42\n"},
		{"echo object", "2.0", "echo", []string{`a={"b":1}`}, "{\n  \"a\": {\n    \"b\": 1\n  }\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &conf.ClientConfig{URL: url, Version: tt.version}
			var out bytes.Buffer
			if err := runCall(context.Background(), c, tt.method, util.ParseArgs(tt.args), &out); err != nil {
				t.Fatalf("runCall() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestRunCallRemoteError(t *testing.T) {
	c := &conf.ClientConfig{URL: newStubServer(t), Version: "2.0"}
	err := runCall(context.Background(), c, "divide", nil, &bytes.Buffer{})
	if !jsonrpc.IsKind(err, jsonrpc.KindRemote) {
		t.Fatalf("runCall() error = %v, want a remote error", err)
	}
	if got := describeError(err); !strings.HasPrefix(got, "remote error -32601: method not found: divide") {
		t.Errorf("describeError() = %q", got)
	}
}

func TestDescribeError(t *testing.T) {
	err := &jsonrpc.Error{Kind: jsonrpc.KindTransport, Message: "send failed", Cause: errors.New("refused")}
	if got := describeError(err); got != "transport error: transport: send failed: refused" {
		t.Errorf("describeError() = %q", got)
	}
}

func TestReportFailureLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	remote := &jsonrpc.Error{Kind: jsonrpc.KindRemote, Method: "divide", Message: "remote error"}
	reportFailure(remote)
	if buf.Len() != 0 {
		t.Errorf("call failure logged again: %s", buf.String())
	}

	reportFailure(errors.New("url is required"))
	if !strings.Contains(buf.String(), "url is required") {
		t.Errorf("log = %q, want the config failure", buf.String())
	}
}
