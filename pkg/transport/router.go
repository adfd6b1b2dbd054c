package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Options configures the transports created by NewRouter.
type Options struct {
	Timeout     time.Duration
	Headers     map[string]string
	Compression bool
}

// Router picks a transport from the scheme of the destination address:
// http/https, ws/wss, tcp and unix.
type Router struct {
	HTTP      *HTTP
	Stream    *Stream
	WebSocket *WebSocket
}

func NewRouter(opts Options) *Router {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Router{
		HTTP: NewHTTP(
			WithTimeout(timeout),
			WithHeaders(opts.Headers),
			WithCompression(opts.Compression),
		),
		Stream:    NewStream(timeout),
		WebSocket: NewWebSocket(timeout, opts.Headers),
	}
}

// UnsupportedSchemeError reports an address no transport can serve.
type UnsupportedSchemeError struct {
	Address string
	Scheme  string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported transport scheme %q in %q", e.Scheme, e.Address)
}

func (r *Router) Send(ctx context.Context, address string, request []byte) ([]byte, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return r.HTTP.Send(ctx, address, request)
	case "ws", "wss":
		return r.WebSocket.Send(ctx, address, request)
	case "tcp", "tcp4", "tcp6", "unix":
		return r.Stream.Send(ctx, address, request)
	}
	return nil, &UnsupportedSchemeError{Address: address, Scheme: u.Scheme}
}

func (r *Router) Close() error {
	_ = r.Stream.Close()
	return r.WebSocket.Close()
}
