package jsonrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Observer is notified once per finished call. kind is empty on success.
type Observer interface {
	ObserveCall(method string, version Version, kind Kind, elapsed time.Duration)
}

// Client dispatches requests to one address over a Transport. It holds no
// per-call state besides the id generator and is safe for concurrent use.
//
// Remote APIs are written as method sets over a Client, one per protocol
// version if needed:
//
//	func (m *MathV2) Subtract(ctx context.Context, subtrahend, minuend int64) (int64, error) {
//		return jsonrpc.Call[int64](ctx, m.client, "subtract", jsonrpc.V2,
//			jsonrpc.Arg{Name: "subtrahend", Value: subtrahend},
//			jsonrpc.Arg{Name: "minuend", Value: minuend})
//	}
type Client struct {
	transport Transport
	address   string
	ids       IDGenerator
	strictIDs bool
	observer  Observer
}

type Option func(*Client)

// WithIDGenerator replaces the default counter starting at 0.
func WithIDGenerator(ids IDGenerator) Option {
	return func(c *Client) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithStrictIDs makes a response whose id differs from the request id a
// protocol error. Off by default.
func WithStrictIDs(strict bool) Option {
	return func(c *Client) {
		c.strictIDs = strict
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func NewClient(transport Transport, address string, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		address:   address,
		ids:       NewCounter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Address() string {
	return c.address
}

// Invoke runs the build, send and parse steps of a call and returns the
// decoded envelope. A JSON-RPC error object is not an error here; see Do.
func Invoke[P any](ctx context.Context, c *Client, req *Request) (*Response[P], error) {
	method := req.Method()
	id := c.ids.Next()

	body, err := req.Serialize(id)
	if err != nil {
		return nil, withMethod(err, KindBuild, method)
	}

	log.Debug().
		Str("method", method).
		Str("id", id.String()).
		Str("address", c.address).
		Msg("jsonrpc request")

	raw, err := c.transport.Send(ctx, c.address, body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Message: "send request", Cause: err}
	}

	resp, err := ParseResponse[P](raw)
	if err != nil {
		return nil, withMethod(err, KindProtocol, method)
	}
	if c.strictIDs && !resp.ID.Equal(id) {
		return nil, &Error{
			Kind:    KindProtocol,
			Method:  method,
			Message: fmt.Sprintf("response id %s does not match request id %s", resp.ID, id),
		}
	}

	log.Debug().
		Str("method", method).
		Str("id", resp.ID.String()).
		Bool("error", resp.IsError()).
		Msg("jsonrpc response")

	return resp, nil
}

// Do performs a call and returns its payload. Every failure is an *Error
// whose Kind tells the four outcomes apart; remote failures wrap the peer's
// *RPCError.
func Do[P any](ctx context.Context, c *Client, req *Request) (P, error) {
	start := time.Now()
	payload, err := do[P](ctx, c, req)
	if c.observer != nil {
		c.observer.ObserveCall(req.Method(), req.Version(), KindOf(err), time.Since(start))
	}
	return payload, err
}

func do[P any](ctx context.Context, c *Client, req *Request) (P, error) {
	var zero P
	resp, err := Invoke[P](ctx, c, req)
	if err != nil {
		return zero, err
	}
	if resp.Error != nil {
		return zero, &Error{Kind: KindRemote, Method: req.Method(), Message: "remote error", Cause: resp.Error}
	}
	return resp.Result, nil
}

// Call builds a request from method, version and args and performs it.
func Call[P any](ctx context.Context, c *Client, method string, version Version, args ...Arg) (P, error) {
	req, err := NewRequest(method, version).WithArguments(args...)
	if err != nil {
		var zero P
		err = withMethod(err, KindBuild, method)
		if c.observer != nil {
			c.observer.ObserveCall(method, version, KindBuild, 0)
		}
		return zero, err
	}
	return Do[P](ctx, c, req)
}
