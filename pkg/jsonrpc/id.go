package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type idKind uint8

const (
	idNull idKind = iota
	idNumber
	idString
)

// ID is a JSON-RPC request identifier: an integer, a string or null.
// The zero value is the null id.
type ID struct {
	kind idKind
	num  int64
	str  string
}

func NumberID(n int64) ID {
	return ID{kind: idNumber, num: n}
}

func StringID(s string) ID {
	return ID{kind: idString, str: s}
}

func NullID() ID {
	return ID{}
}

func (id ID) IsNull() bool {
	return id.kind == idNull
}

// Number returns the integer value and whether id is a number.
func (id ID) Number() (int64, bool) {
	return id.num, id.kind == idNumber
}

// Str returns the string value and whether id is a string.
func (id ID) Str() (string, bool) {
	return id.str, id.kind == idString
}

func (id ID) Equal(other ID) bool {
	if id.kind != other.kind {
		return false
	}
	switch id.kind {
	case idNumber:
		return id.num == other.num
	case idString:
		return id.str == other.str
	}
	return true
}

func (id ID) String() string {
	switch id.kind {
	case idNumber:
		return strconv.FormatInt(id.num, 10)
	case idString:
		return strconv.Quote(id.str)
	}
	return "null"
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idNumber:
		return strconv.AppendInt(nil, id.num, 10), nil
	case idString:
		return json.Marshal(id.str)
	}
	return []byte("null"), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty id")
	}
	switch data[0] {
	case 'n':
		if !bytes.Equal(data, []byte("null")) {
			return fmt.Errorf("invalid id: %s", data)
		}
		*id = NullID()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid string id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an integer, string or null: %s", data)
	}
	*id = NumberID(n)
	return nil
}
