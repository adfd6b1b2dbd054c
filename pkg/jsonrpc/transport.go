package jsonrpc

import "context"

// Transport delivers a serialized request to address and returns the raw
// response bytes. Cancellation and timeouts are driven through ctx; retries,
// if any, are the transport's business.
type Transport interface {
	Send(ctx context.Context, address string, request []byte) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, address string, request []byte) ([]byte, error)

func (f TransportFunc) Send(ctx context.Context, address string, request []byte) ([]byte, error) {
	return f(ctx, address, request)
}
