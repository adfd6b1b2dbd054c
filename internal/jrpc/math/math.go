// Package math holds hand-written method sets for the arithmetic API served
// by the stub peer. One jsonrpc.Client can back both versions at once.
package math

import (
	"context"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

// API is implemented by both method sets.
type API interface {
	Subtract(ctx context.Context, subtrahend, minuend int64) (int64, error)
	Multiply(ctx context.Context, value, factor int64) (int64, error)
}

// MathV1 sends positional 1.0 requests.
type MathV1 struct {
	client *jsonrpc.Client
}

func NewMathV1(client *jsonrpc.Client) *MathV1 {
	return &MathV1{client: client}
}

func (m *MathV1) Subtract(ctx context.Context, subtrahend, minuend int64) (int64, error) {
	return jsonrpc.Call[int64](ctx, m.client, "subtract", jsonrpc.V1,
		jsonrpc.Arg{Name: "subtrahend", Value: subtrahend},
		jsonrpc.Arg{Name: "minuend", Value: minuend})
}

func (m *MathV1) Multiply(ctx context.Context, value, factor int64) (int64, error) {
	return jsonrpc.Call[int64](ctx, m.client, "multiply", jsonrpc.V1,
		jsonrpc.Arg{Name: "value", Value: value},
		jsonrpc.Arg{Name: "factor", Value: factor})
}

// MathV2 sends named 2.0 requests.
type MathV2 struct {
	client *jsonrpc.Client
}

func NewMathV2(client *jsonrpc.Client) *MathV2 {
	return &MathV2{client: client}
}

func (m *MathV2) Subtract(ctx context.Context, subtrahend, minuend int64) (int64, error) {
	return jsonrpc.Call[int64](ctx, m.client, "subtract", jsonrpc.V2,
		jsonrpc.Arg{Name: "subtrahend", Value: subtrahend},
		jsonrpc.Arg{Name: "minuend", Value: minuend})
}

// Multiply builds its request by hand instead of going through Call.
func (m *MathV2) Multiply(ctx context.Context, value, factor int64) (int64, error) {
	req, err := jsonrpc.NewV2("multiply").WithArgument("value", value)
	if err == nil {
		req, err = req.WithArgument("factor", factor)
	}
	if err != nil {
		return 0, err
	}
	return jsonrpc.Do[int64](ctx, m.client, req)
}

// New returns the method set for version.
func New(client *jsonrpc.Client, version jsonrpc.Version) API {
	if version == jsonrpc.V1 {
		return NewMathV1(client)
	}
	return NewMathV2(client)
}
