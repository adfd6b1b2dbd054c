package stub

import (
	"context"
	"encoding/json"
	"math"

	"github.com/sjzar/jrpc/internal/errors"
)

// 位置参数按客户端方法的声明顺序解析：subtract(subtrahend, minuend)、multiply(value, factor)

func subtract(_ context.Context, p Params) (any, error) {
	var subtrahend, minuend json.Number
	if err := p.Arg(0, "subtrahend", &subtrahend); err != nil {
		return nil, err
	}
	if err := p.Arg(1, "minuend", &minuend); err != nil {
		return nil, err
	}
	return arith(minuend, subtrahend, func(a, b int64) (int64, bool) {
		r := a - b
		return r, (a >= 0) == (b >= 0) || (r >= 0) == (a >= 0)
	}, func(a, b float64) float64 { return a - b })
}

func multiply(_ context.Context, p Params) (any, error) {
	var value, factor json.Number
	if err := p.Arg(0, "value", &value); err != nil {
		return nil, err
	}
	if err := p.Arg(1, "factor", &factor); err != nil {
		return nil, err
	}
	return arith(value, factor, func(a, b int64) (int64, bool) {
		if a == 0 || b == 0 {
			return 0, true
		}
		r := a * b
		return r, r/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64)
	}, func(a, b float64) float64 { return a * b })
}

// echo 原样返回参数
func echo(_ context.Context, p Params) (any, error) {
	if p.Raw() == nil {
		return nil, nil
	}
	return p.Raw(), nil
}

// arith 两个操作数均为整数且结果不溢出时按整数计算，否则按浮点数计算
func arith(a, b json.Number, intOp func(a, b int64) (int64, bool), floatOp func(a, b float64) float64) (any, error) {
	ai, aErr := a.Int64()
	bi, bErr := b.Int64()
	if aErr == nil && bErr == nil {
		if r, ok := intOp(ai, bi); ok {
			return r, nil
		}
	}
	af, err := a.Float64()
	if err != nil {
		return nil, errors.InvalidArg(a.String())
	}
	bf, err := b.Float64()
	if err != nil {
		return nil, errors.InvalidArg(b.String())
	}
	return floatOp(af, bf), nil
}
