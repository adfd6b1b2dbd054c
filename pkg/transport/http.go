package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxResponseSize = 32 << 20
)

// StatusError is returned when the peer answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, body)
}

// HTTP posts each request to the address and returns the response body.
type HTTP struct {
	client          *http.Client
	headers         map[string]string
	compression     bool
	maxResponseSize int64
}

type HTTPOption func(*HTTP)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithTimeout sets the timeout on a copy of the client, so a client passed
// to WithHTTPClient is left as it was.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(h *HTTP) {
		client := *h.client
		client.Timeout = timeout
		h.client = &client
	}
}

// WithHeaders sets extra request headers, e.g. Authorization.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(h *HTTP) {
		for k, v := range headers {
			h.headers[k] = v
		}
	}
}

// WithCompression advertises gzip and zstd and decodes compressed bodies.
func WithCompression(enabled bool) HTTPOption {
	return func(h *HTTP) {
		h.compression = enabled
	}
}

func WithMaxResponseSize(n int64) HTTPOption {
	return func(h *HTTP) {
		if n > 0 {
			h.maxResponseSize = n
		}
	}
}

func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:          &http.Client{Timeout: DefaultTimeout},
		headers:         make(map[string]string),
		maxResponseSize: DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) Send(ctx context.Context, address string, request []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, address, bytes.NewReader(request))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	if h.compression {
		// Setting Accept-Encoding turns off the transparent gzip handling
		// of net/http, so decodeBody takes over.
		req.Header.Set("Accept-Encoding", "gzip, zstd")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := h.decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	log.Debug().
		Str("address", address).
		Int("status", resp.StatusCode).
		Str("encoding", resp.Header.Get("Content-Encoding")).
		Int("size", len(body)).
		Msg("http round trip")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

func (h *HTTP) decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		reader = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}

	body, err := io.ReadAll(io.LimitReader(reader, h.maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > h.maxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", h.maxResponseSize)
	}
	return body, nil
}
