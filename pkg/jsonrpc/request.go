package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the protocol version tag sent in the "jsonrpc" member.
type Version string

const (
	V1 Version = "1.0"
	V2 Version = "2.0"
)

func (v Version) Valid() bool {
	return v == V1 || v == V2
}

// ParseVersion accepts "1", "1.0", "2" and "2.0".
func ParseVersion(s string) (Version, error) {
	switch s {
	case "1", "1.0":
		return V1, nil
	case "2", "2.0":
		return V2, nil
	}
	return "", fmt.Errorf("unsupported jsonrpc version %q", s)
}

// Arg is a named call argument. The name is ignored on the wire for 1.0
// requests, where only the position counts.
type Arg struct {
	Name  string
	Value any
}

type argument struct {
	name  string
	value json.RawMessage
}

// Request accumulates the method and arguments of one call. It is immutable:
// WithArgument returns a new Request and leaves the receiver untouched.
type Request struct {
	method  string
	version Version
	args    []argument
}

func NewRequest(method string, version Version) *Request {
	return &Request{method: method, version: version}
}

func NewV1(method string) *Request {
	return NewRequest(method, V1)
}

func NewV2(method string) *Request {
	return NewRequest(method, V2)
}

func (r *Request) Method() string {
	return r.method
}

func (r *Request) Version() Version {
	return r.version
}

// Len returns the number of params that will be sent.
func (r *Request) Len() int {
	return len(r.args)
}

// WithArgument appends an argument. The value is marshalled immediately; if
// that fails a build error tagged with the method name is returned and no
// argument is added.
func (r *Request) WithArgument(name string, value any) (*Request, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, withMethod(newError(KindBuild, fmt.Sprintf("serialize argument %q", name), err), KindBuild, r.method)
	}

	args := make([]argument, len(r.args), len(r.args)+1)
	copy(args, r.args)

	if r.version == V2 {
		for i := range args {
			if args[i].name == name {
				args[i].value = raw
				return &Request{method: r.method, version: r.version, args: args}, nil
			}
		}
	}
	args = append(args, argument{name: name, value: raw})
	return &Request{method: r.method, version: r.version, args: args}, nil
}

// WithArguments applies WithArgument for each arg in order.
func (r *Request) WithArguments(args ...Arg) (*Request, error) {
	var err error
	req := r
	for _, a := range args {
		if req, err = req.WithArgument(a.Name, a.Value); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// Serialize renders the request envelope with the given id:
//
//	{"id":<id>,"jsonrpc":"<version>","method":"<method>","params":<params>}
//
// 1.0 params are an array in insertion order, 2.0 params an object keyed by
// argument name.
func (r *Request) Serialize(id ID) ([]byte, error) {
	if !r.version.Valid() {
		return nil, newError(KindBuild, fmt.Sprintf("unsupported jsonrpc version %q", r.version), nil)
	}

	idRaw, err := id.MarshalJSON()
	if err != nil {
		return nil, newError(KindBuild, "serialize id", err)
	}
	methodRaw, err := json.Marshal(r.method)
	if err != nil {
		return nil, newError(KindBuild, "serialize method", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	buf.Write(idRaw)
	buf.WriteString(`,"jsonrpc":"`)
	buf.WriteString(string(r.version))
	buf.WriteString(`","method":`)
	buf.Write(methodRaw)
	buf.WriteString(`,"params":`)
	if err := r.writeParams(&buf); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Request) writeParams(buf *bytes.Buffer) error {
	if r.version == V1 {
		buf.WriteByte('[')
		for i, a := range r.args {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(a.value)
		}
		buf.WriteByte(']')
		return nil
	}

	buf.WriteByte('{')
	for i, a := range r.args {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.name)
		if err != nil {
			return newError(KindBuild, fmt.Sprintf("serialize argument name %q", a.name), err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(a.value)
	}
	buf.WriteByte('}')
	return nil
}
