package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

const okResponse = `{"id":0,"jsonrpc":"2.0","result":1}`

func TestHTTPSend(t *testing.T) {
	var gotBody, gotContentType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = io.WriteString(w, okResponse)
	}))
	defer srv.Close()

	h := NewHTTP(WithHeaders(map[string]string{"Authorization": "Bearer t"}))
	resp, err := h.Send(context.Background(), srv.URL, []byte(`{"id":0}`))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if string(resp) != okResponse {
		t.Errorf("Send() = %s", resp)
	}
	if gotBody != `{"id":0}` {
		t.Errorf("server got body %q", gotBody)
	}
	if gotContentType != "application/json" {
		t.Errorf("server got content type %q", gotContentType)
	}
	if gotAuth != "Bearer t" {
		t.Errorf("server got authorization %q", gotAuth)
	}
}

func TestHTTPCompressedResponses(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		encode   func(w io.Writer) io.WriteCloser
	}{
		{
			name:     "gzip",
			encoding: "gzip",
			encode:   func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		},
		{
			name:     "zstd",
			encoding: "zstd",
			encode: func(w io.Writer) io.WriteCloser {
				enc, err := zstd.NewWriter(w)
				if err != nil {
					t.Fatalf("zstd.NewWriter() error = %v", err)
				}
				return enc
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var accept string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				accept = r.Header.Get("Accept-Encoding")
				w.Header().Set("Content-Encoding", tt.encoding)
				enc := tt.encode(w)
				_, _ = io.WriteString(enc, okResponse)
				_ = enc.Close()
			}))
			defer srv.Close()

			h := NewHTTP(WithCompression(true))
			resp, err := h.Send(context.Background(), srv.URL, []byte(`{}`))
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if string(resp) != okResponse {
				t.Errorf("Send() = %s", resp)
			}
			if accept != "gzip, zstd" {
				t.Errorf("Accept-Encoding = %q", accept)
			}
		})
	}
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	_, err := NewHTTP().Send(context.Background(), srv.URL, []byte(`{}`))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Send() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway || string(statusErr.Body) != "upstream down" {
		t.Errorf("status error = %+v", statusErr)
	}
}

func TestHTTPResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, okResponse)
	}))
	defer srv.Close()

	if _, err := NewHTTP(WithMaxResponseSize(8)).Send(context.Background(), srv.URL, []byte(`{}`)); err == nil {
		t.Errorf("Send() should fail for an oversized body")
	}
}

func TestHTTPContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := NewHTTP().Send(ctx, srv.URL, []byte(`{}`)); err == nil {
		t.Errorf("Send() should fail when the context expires")
	}
}

func TestHTTPWithClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":0,"jsonrpc":"1.0","result":"pong","error":null}`)
	}))
	defer srv.Close()

	client := jsonrpc.NewClient(NewHTTP(), srv.URL)
	got, err := jsonrpc.Call[string](context.Background(), client, "ping", jsonrpc.V1)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "pong" {
		t.Errorf("Call() = %q, want pong", got)
	}
}

func TestWithTimeoutKeepsSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	h := NewHTTP(WithHTTPClient(shared), WithTimeout(time.Second))

	if shared.Timeout != time.Minute {
		t.Errorf("shared client timeout = %v, want it unchanged", shared.Timeout)
	}
	if h.client == shared || h.client.Timeout != time.Second {
		t.Errorf("transport client timeout = %v, want a 1s copy", h.client.Timeout)
	}
}
