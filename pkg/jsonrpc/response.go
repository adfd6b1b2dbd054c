package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Response is a decoded JSON-RPC response envelope carrying either a payload
// of type P or an error object, never both.
type Response[P any] struct {
	ID ID
	// Version is empty when a 1.0 peer omitted the "jsonrpc" member.
	Version Version
	Result  P
	Error   *RPCError
}

func NewResult[P any](version Version, id ID, payload P) *Response[P] {
	return &Response[P]{ID: id, Version: version, Result: payload}
}

func NewErrorResponse[P any](version Version, id ID, rpcErr *RPCError) *Response[P] {
	return &Response[P]{ID: id, Version: version, Error: rpcErr}
}

func (r *Response[P]) IsError() bool {
	return r.Error != nil
}

// IntoResult returns the payload, or the peer's error object verbatim.
func (r *Response[P]) IntoResult() (P, error) {
	if r.Error != nil {
		var zero P
		return zero, r.Error
	}
	return r.Result, nil
}

// MarshalJSON renders the wire form. 1.0 envelopes carry both members with
// the unused one set to null.
func (r *Response[P]) MarshalJSON() ([]byte, error) {
	idRaw, err := r.ID.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	buf.Write(idRaw)
	if r.Version != "" {
		buf.WriteString(`,"jsonrpc":"`)
		buf.WriteString(string(r.Version))
		buf.WriteByte('"')
	}
	if r.Error != nil {
		errRaw, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		if r.Version == V1 {
			buf.WriteString(`,"result":null`)
		}
		buf.WriteString(`,"error":`)
		buf.Write(errRaw)
	} else {
		resRaw, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"result":`)
		buf.Write(resRaw)
		if r.Version == V1 {
			buf.WriteString(`,"error":null`)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var null = []byte("null")

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), null)
}

// nullable reports whether a null result can be held by P.
func nullable[P any]() bool {
	switch reflect.TypeFor[P]().Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map:
		return true
	}
	return false
}

func protocolError(format string, args ...any) *Error {
	return newError(KindProtocol, fmt.Sprintf(format, args...), nil)
}

// ParseResponse decodes raw response bytes into a Response[P]. Malformed
// envelopes, including ones with both or neither of result and error, and
// results that do not decode into P are reported as KindProtocol errors.
//
// A null "error" member counts as absent, as 1.0 peers send
// {"result":…,"error":null}. Likewise a null "result" next to a non-null
// error is ignored. A null result is accepted only when P can hold null
// (interfaces, pointers, slices and maps, json.RawMessage included).
func ParseResponse[P any](data []byte) (*Response[P], error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, newError(KindProtocol, "response is not a JSON object", err)
	}
	if fields == nil {
		return nil, protocolError("response is null")
	}

	resp := &Response[P]{}

	if raw, ok := fields["id"]; ok {
		if err := resp.ID.UnmarshalJSON(raw); err != nil {
			return nil, newError(KindProtocol, "invalid response id", err)
		}
	}

	if raw, ok := fields["jsonrpc"]; ok && !isNull(raw) {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, newError(KindProtocol, "invalid jsonrpc member", err)
		}
		if !Version(v).Valid() {
			return nil, protocolError("unsupported jsonrpc version %q", v)
		}
		resp.Version = Version(v)
	}

	resultRaw, hasResult := fields["result"]
	errorRaw, hasError := fields["error"]
	hasError = hasError && !isNull(errorRaw)
	if hasError && hasResult && isNull(resultRaw) {
		hasResult = false
	}

	switch {
	case hasResult && hasError:
		return nil, protocolError("response carries both result and error")
	case !hasResult && !hasError:
		return nil, protocolError("response carries neither result nor error")
	case hasError:
		rpcErr, err := parseRPCError(errorRaw)
		if err != nil {
			return nil, err
		}
		resp.Error = rpcErr
	case isNull(resultRaw) && !nullable[P]():
		return nil, protocolError("null result does not match %T", resp.Result)
	default:
		if err := json.Unmarshal(resultRaw, &resp.Result); err != nil {
			return nil, newError(KindProtocol, fmt.Sprintf("result does not match %T", resp.Result), err)
		}
	}
	return resp, nil
}

func parseRPCError(raw json.RawMessage) (*RPCError, error) {
	var wire struct {
		Code    *json.Number    `json:"code"`
		Message *string         `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, newError(KindProtocol, "error member is not an object", err)
	}
	if wire.Code == nil {
		return nil, protocolError("error object has no code")
	}
	code, err := wire.Code.Int64()
	if err != nil {
		return nil, newError(KindProtocol, "error code is not an integer", err)
	}
	if wire.Message == nil {
		return nil, protocolError("error object has no message")
	}

	rpcErr := &RPCError{Code: int(code), Message: *wire.Message}
	if !isNull(wire.Data) {
		rpcErr.Data = wire.Data
	}
	return rpcErr, nil
}
