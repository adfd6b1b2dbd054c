package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

// ParseArg 解析 name=value 形式的命令行参数
// value 是合法 JSON 时按 JSON 处理，否则按字符串处理，如 count=3 为数字，name=bob 为字符串
// 不含 "=" 的参数按下标命名为位置参数
func ParseArg(index int, s string) jsonrpc.Arg {
	name, value, found := strings.Cut(s, "=")
	if !found || !IsIdentifier(name) {
		name, value = "arg"+strconv.Itoa(index), s
	}
	return jsonrpc.Arg{Name: name, Value: ParseValue(value)}
}

func ParseArgs(items []string) []jsonrpc.Arg {
	args := make([]jsonrpc.Arg, 0, len(items))
	for i, item := range items {
		args = append(args, ParseArg(i, item))
	}
	return args
}

// ParseValue 合法 JSON 返回原始 JSON，否则返回字符串本身
func ParseValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return s
}

// IsIdentifier 判断 s 是否可作为参数名
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '-' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ArgsFromJSON 将 JSON 数组转换为位置参数，JSON 对象转换为命名参数，保持键的顺序
// 输入为空时没有参数
func ArgsFromJSON(raw string) ([]jsonrpc.Arg, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}

	var args []jsonrpc.Arg
	switch tok {
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("params[%d]: %w", i, err)
			}
			args = append(args, jsonrpc.Arg{Name: "arg" + strconv.Itoa(i), Value: v})
		}
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("params: %w", err)
			}
			key, _ := keyTok.(string)
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("params.%s: %w", key, err)
			}
			args = append(args, jsonrpc.Arg{Name: key, Value: v})
		}
	default:
		return nil, fmt.Errorf("params must be a JSON array or object")
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("params: trailing data")
	}
	return args, nil
}
