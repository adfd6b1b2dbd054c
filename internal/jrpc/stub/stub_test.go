package stub

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/pkg/filemonitor"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
	"github.com/sjzar/jrpc/pkg/transport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingRecorder struct {
	calls map[string]int
}

func (r *countingRecorder) IncrementStubRequests(method string, version jsonrpc.Version) {
	r.calls[method+"@"+string(version)]++
}

func newServer(t *testing.T, s *Stub) *httptest.Server {
	t.Helper()
	r := gin.New()
	r.Use(errors.ErrorHandlerMiddleware())
	r.POST("/rpc", s.Handle)
	r.GET("/ws", s.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestRespond(t *testing.T) {
	s := New(nil)
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "subtract named",
			body: `{"id":0,"jsonrpc":"2.0","method":"subtract","params":{"subtrahend":5,"minuend":4}}`,
			want: `{"id":0,"jsonrpc":"2.0","result":-1}`,
		},
		{
			name: "subtract positional",
			body: `{"id":1,"jsonrpc":"1.0","method":"subtract","params":[5,4]}`,
			want: `{"id":1,"jsonrpc":"1.0","result":-1,"error":null}`,
		},
		{
			name: "multiply floats",
			body: `{"id":"m","jsonrpc":"2.0","method":"multiply","params":{"value":1.5,"factor":2}}`,
			want: `{"id":"m","jsonrpc":"2.0","result":3}`,
		},
		{
			name: "echo",
			body: `{"id":2,"jsonrpc":"2.0","method":"echo","params":{"b":[1,2],"a":"x"}}`,
			want: `{"id":2,"jsonrpc":"2.0","result":{"b":[1,2],"a":"x"}}`,
		},
		{
			name: "echo without params",
			body: `{"id":2,"jsonrpc":"2.0","method":"echo"}`,
			want: `{"id":2,"jsonrpc":"2.0","result":null}`,
		},
		{
			name: "missing version is 1.0",
			body: `{"id":3,"method":"multiply","params":[2,3]}`,
			want: `{"id":3,"jsonrpc":"1.0","result":6,"error":null}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(s.Respond(context.Background(), []byte(tt.body))); got != tt.want {
				t.Errorf("Respond() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRespondErrors(t *testing.T) {
	s := New(nil)
	tests := []struct {
		name string
		body string
		id   jsonrpc.ID
		code int
	}{
		{"parse error", `{"id":1,`, jsonrpc.NullID(), jsonrpc.CodeParseError},
		{"not an object", `[1,2]`, jsonrpc.NullID(), jsonrpc.CodeInvalidRequest},
		{"bad id", `{"id":1.5,"method":"echo"}`, jsonrpc.NullID(), jsonrpc.CodeInvalidRequest},
		{"bad version", `{"id":1,"jsonrpc":"3.0","method":"echo"}`, jsonrpc.NumberID(1), jsonrpc.CodeInvalidRequest},
		{"missing method", `{"id":1,"jsonrpc":"2.0"}`, jsonrpc.NumberID(1), jsonrpc.CodeInvalidRequest},
		{"bad params", `{"id":1,"jsonrpc":"2.0","method":"echo","params":3}`, jsonrpc.NumberID(1), jsonrpc.CodeInvalidRequest},
		{"unknown method", `{"id":"u","jsonrpc":"2.0","method":"divide"}`, jsonrpc.StringID("u"), jsonrpc.CodeMethodNotFound},
		{"missing argument", `{"id":1,"jsonrpc":"2.0","method":"subtract","params":{"minuend":1}}`, jsonrpc.NumberID(1), jsonrpc.CodeInvalidParams},
		{"wrong argument type", `{"id":1,"jsonrpc":"2.0","method":"subtract","params":[{},1]}`, jsonrpc.NumberID(1), jsonrpc.CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := s.Respond(context.Background(), []byte(tt.body))
			resp, err := jsonrpc.ParseResponse[json.RawMessage](raw)
			if err != nil {
				t.Fatalf("ParseResponse(%s) error = %v", raw, err)
			}
			if !resp.IsError() || resp.Error.Code != tt.code {
				t.Errorf("Respond() = %s, want code %d", raw, tt.code)
			}
			if !resp.ID.Equal(tt.id) {
				t.Errorf("Respond() id = %v, want %v", resp.ID, tt.id)
			}
		})
	}
}

func TestIntegerOverflowFallsBackToFloat(t *testing.T) {
	s := New(nil)
	raw := s.Respond(context.Background(), []byte(`{"id":0,"jsonrpc":"2.0","method":"multiply","params":[9223372036854775807,2]}`))
	resp, err := jsonrpc.ParseResponse[float64](raw)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if resp.Result < 1.8e19 {
		t.Errorf("result = %v", resp.Result)
	}
}

func TestFixtures(t *testing.T) {
	rec := &countingRecorder{calls: map[string]int{}}
	s := New(rec)
	fixtures, err := ParseFixtures([]byte(`{
		"answer": {"result": {"value": 42}},
		"subtract": {"error": {"code": -32000, "message": "busy", "data": "retry later"}}
	}`))
	if err != nil {
		t.Fatalf("ParseFixtures() error = %v", err)
	}
	s.SetFixtures(fixtures)

	client := jsonrpc.NewClient(jsonrpc.TransportFunc(func(ctx context.Context, _ string, request []byte) ([]byte, error) {
		return s.Respond(ctx, request), nil
	}), "inproc")

	got, err := jsonrpc.Call[map[string]int](context.Background(), client, "answer", jsonrpc.V2)
	if err != nil || got["value"] != 42 {
		t.Errorf("Call(answer) = %v, %v", got, err)
	}

	_, err = jsonrpc.Call[int64](context.Background(), client, "subtract", jsonrpc.V1,
		jsonrpc.Arg{Name: "subtrahend", Value: 1}, jsonrpc.Arg{Name: "minuend", Value: 2})
	rpcErr, ok := jsonrpc.AsRPCError(err)
	if !ok || rpcErr.Code != -32000 || string(rpcErr.Data) != `"retry later"` {
		t.Errorf("fixture error = %v", err)
	}

	if rec.calls["answer@2.0"] != 1 || rec.calls["subtract@1.0"] != 1 {
		t.Errorf("recorder = %v", rec.calls)
	}
	methods := strings.Join(s.Methods(), ",")
	if methods != "answer,echo,multiply,subtract" {
		t.Errorf("Methods() = %s", methods)
	}
}

func TestParseFixturesRejects(t *testing.T) {
	tests := []string{
		`[]`,
		`{"a": {}}`,
		`{"a": {"result": 1, "error": {"code": 1, "message": "x"}}}`,
		`{"a": {"error": {"code": 1}}}`,
		`{"a": {"error": "boom"}}`,
	}
	for _, tt := range tests {
		if _, err := ParseFixtures([]byte(tt)); err == nil {
			t.Errorf("ParseFixtures(%s) should fail", tt)
		}
	}
}

func TestWatchFixturesReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	if err := os.WriteFile(path, []byte(`{"version": {"result": 1}}`), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := New(nil)
	fm := filemonitor.NewFileMonitor(20 * time.Millisecond)
	if err := s.WatchFixtures(fm, path); err != nil {
		t.Fatalf("WatchFixtures() error = %v", err)
	}
	if err := fm.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer fm.Stop()

	request := []byte(`{"id":0,"jsonrpc":"2.0","method":"version"}`)
	if got := string(s.Respond(context.Background(), request)); got != `{"id":0,"jsonrpc":"2.0","result":1}` {
		t.Fatalf("Respond() = %s", got)
	}

	if err := os.WriteFile(path, []byte(`{"version": {"result": 2}}`), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if string(s.Respond(context.Background(), request)) == `{"id":0,"jsonrpc":"2.0","result":2}` {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("fixtures were not reloaded")
}

func TestHandleHTTP(t *testing.T) {
	srv := newServer(t, New(nil))

	client := jsonrpc.NewClient(transport.NewHTTP(), srv.URL+"/rpc", jsonrpc.WithStrictIDs(true))
	got, err := jsonrpc.Call[int64](context.Background(), client, "subtract", jsonrpc.V2,
		jsonrpc.Arg{Name: "subtrahend", Value: 5}, jsonrpc.Arg{Name: "minuend", Value: 4})
	if err != nil || got != -1 {
		t.Errorf("Call(subtract) = %d, %v", got, err)
	}

	_, err = jsonrpc.Call[int64](context.Background(), client, "divide", jsonrpc.V1)
	if code, ok := jsonrpc.RemoteCode(err); !ok || code != jsonrpc.CodeMethodNotFound {
		t.Errorf("Call(divide) error = %v", err)
	}

	resp, err := http.Post(srv.URL+"/rpc", "application/json", strings.NewReader(`{"id":7,`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()
	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(body["id"]) != "null" || !strings.Contains(string(body["error"]), "-32700") {
		t.Errorf("parse error response = %v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Errorf("missing X-Request-ID")
	}
}

func TestServeStream(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(nil).Serve(ctx, l) }()

	stream := transport.NewStream(time.Second)
	defer stream.Close()
	client := jsonrpc.NewClient(stream, "tcp://"+l.Addr().String(), jsonrpc.WithStrictIDs(true))
	for i := int64(1); i <= 3; i++ {
		got, err := jsonrpc.Call[int64](context.Background(), client, "multiply", jsonrpc.V1,
			jsonrpc.Arg{Name: "value", Value: i}, jsonrpc.Arg{Name: "factor", Value: 10})
		if err != nil || got != i*10 {
			t.Errorf("Call(multiply) = %d, %v", got, err)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve() did not return after cancel")
	}
}

func TestServeStreamOversizedLine(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = New(nil).Serve(ctx, l) }()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	oversized := `{"id":1,"jsonrpc":"2.0","method":"echo","params":["` + strings.Repeat("a", MaxRequestSize) + `"]}`
	next := `{"id":2,"jsonrpc":"2.0","method":"subtract","params":[1,3]}`
	if _, err := conn.Write([]byte(oversized + "\n" + next + "\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	r := bufio.NewReader(conn)
	want := []struct {
		id   jsonrpc.ID
		code int
	}{
		{jsonrpc.NullID(), jsonrpc.CodeInvalidRequest},
		{jsonrpc.NumberID(2), 0},
	}
	for _, w := range want {
		line, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("ReadBytes() error = %v", err)
		}
		resp, err := jsonrpc.ParseResponse[int64](line)
		if err != nil {
			t.Fatalf("ParseResponse(%s) error = %v", line, err)
		}
		if !resp.ID.Equal(w.id) {
			t.Errorf("id = %s, want %s", resp.ID, w.id)
		}
		if w.code != 0 {
			if !resp.IsError() || resp.Error.Code != w.code {
				t.Errorf("response = %s, want error %d", line, w.code)
			}
		} else if resp.IsError() || resp.Result != 2 {
			t.Errorf("response = %s, want result 2", line)
		}
	}
}

func TestHandleWebSocket(t *testing.T) {
	srv := newServer(t, New(nil))

	ws := transport.NewWebSocket(time.Second, nil)
	defer ws.Close()
	client := jsonrpc.NewClient(ws, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")

	got, err := jsonrpc.Call[[]int](context.Background(), client, "echo", jsonrpc.V1,
		jsonrpc.Arg{Name: "a", Value: 1}, jsonrpc.Arg{Name: "b", Value: 2})
	if err != nil || len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Call(echo) = %v, %v", got, err)
	}
}
