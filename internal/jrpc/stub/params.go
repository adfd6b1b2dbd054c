package stub

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

// Params 单个请求的参数，位置参数（1.0）或命名参数（2.0）
type Params struct {
	raw        json.RawMessage
	positional []json.RawMessage
	named      map[string]json.RawMessage
}

func parseParams(raw json.RawMessage) (Params, error) {
	p := Params{raw: raw}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.raw = nil
		return p, nil
	}
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &p.positional); err != nil {
			return p, errors.InvalidRequest("malformed params")
		}
	case '{':
		if err := json.Unmarshal(trimmed, &p.named); err != nil {
			return p, errors.InvalidRequest("malformed params")
		}
	default:
		return p, errors.InvalidRequest("params must be an array or an object")
	}
	return p, nil
}

func (p Params) Named() bool {
	return p.named != nil
}

func (p Params) Len() int {
	if p.named != nil {
		return len(p.named)
	}
	return len(p.positional)
}

// Raw 返回收到的原始参数，缺省时为 nil
func (p Params) Raw() json.RawMessage {
	return p.raw
}

// Arg 解码位置 pos 上的参数，命名参数时按 name 查找
func (p Params) Arg(pos int, name string, v any) error {
	var raw json.RawMessage
	if p.named != nil {
		var ok bool
		if raw, ok = p.named[name]; !ok {
			return errors.InvalidArg(name)
		}
	} else {
		if pos >= len(p.positional) {
			return errors.InvalidArg(name)
		}
		raw = p.positional[pos]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, errors.ErrTypeInvalidArg, fmt.Sprintf("invalid argument: %s", name), jsonrpc.CodeInvalidParams)
	}
	return nil
}
