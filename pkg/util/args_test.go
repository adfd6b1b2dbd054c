package util

import (
	"encoding/json"
	"testing"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

func serialize(t *testing.T, version jsonrpc.Version, args []jsonrpc.Arg) string {
	t.Helper()
	req, err := jsonrpc.NewRequest("m", version).WithArguments(args...)
	if err != nil {
		t.Fatalf("WithArguments() error = %v", err)
	}
	b, err := req.Serialize(jsonrpc.NumberID(0))
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	return string(b)
}

func TestParseArgs(t *testing.T) {
	args := ParseArgs([]string{"subtrahend=5", "name=bob", `tags=["a","b"]`, "quoted=\"7\"", "42", "x=", "1bad=3"})
	got := serialize(t, jsonrpc.V2, args)
	want := `{"id":0,"jsonrpc":"2.0","method":"m","params":{"subtrahend":5,"name":"bob","tags":["a","b"],"quoted":"7","arg4":42,"x":"","arg6":"1bad=3"}}`
	if got != want {
		t.Errorf("serialized = %s\nwant %s", got, want)
	}

	got = serialize(t, jsonrpc.V1, ParseArgs([]string{"a=1", "true", "hello world"}))
	if want := `{"id":0,"jsonrpc":"1.0","method":"m","params":[1,true,"hello world"]}`; got != want {
		t.Errorf("serialized = %s\nwant %s", got, want)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3", "3"},
		{"3.5", "3.5"},
		{"null", "null"},
		{`{"a":1}`, `{"a":1}`},
		{"bob", `"bob"`},
		{"", `""`},
		{"[1,", `"[1,"`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(ParseValue(tt.in))
		if err != nil {
			t.Fatalf("Marshal(%q) error = %v", tt.in, err)
		}
		if string(b) != tt.want {
			t.Errorf("ParseValue(%q) = %s, want %s", tt.in, b, tt.want)
		}
	}
}

func TestArgsFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		version jsonrpc.Version
		want    string
		wantErr bool
	}{
		{"array", `[5, 4]`, jsonrpc.V1, `{"id":0,"jsonrpc":"1.0","method":"m","params":[5,4]}`, false},
		{"object keeps order", `{"z": 1, "a": {"n": [1]}}`, jsonrpc.V2, `{"id":0,"jsonrpc":"2.0","method":"m","params":{"z":1,"a":{"n":[1]}}}`, false},
		{"empty", ``, jsonrpc.V2, `{"id":0,"jsonrpc":"2.0","method":"m","params":{}}`, false},
		{"scalar", `3`, jsonrpc.V2, ``, true},
		{"broken", `{"a":`, jsonrpc.V2, ``, true},
		{"trailing", `[1] [2]`, jsonrpc.V2, ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := ArgsFromJSON(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ArgsFromJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := serialize(t, tt.version, args); got != tt.want {
				t.Errorf("serialized = %s, want %s", got, tt.want)
			}
		})
	}
}
