package stub

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

// MaxRequestSize 单个请求的大小上限
const MaxRequestSize = 1 << 20

// Handler 计算一个方法的结果
type Handler func(ctx context.Context, params Params) (any, error)

// Recorder 统计已应答的请求
type Recorder interface {
	IncrementStubRequests(method string, version jsonrpc.Version)
}

// Stub 同时支持 1.0 与 2.0 的 JSON-RPC 测试服务
// 预置应答优先于已注册的方法
type Stub struct {
	mu       sync.RWMutex
	methods  map[string]Handler
	fixtures atomic.Pointer[Fixtures]
	recorder Recorder
}

// New 创建注册了内置方法的 Stub，recorder 可为 nil
func New(recorder Recorder) *Stub {
	s := &Stub{
		methods:  make(map[string]Handler),
		recorder: recorder,
	}
	s.Register("subtract", subtract)
	s.Register("multiply", multiply)
	s.Register("echo", echo)
	return s
}

func (s *Stub) Register(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[method] = h
}

// Methods 返回可应答的方法列表，已排序
func (s *Stub) Methods() []string {
	s.mu.RLock()
	names := make(map[string]bool, len(s.methods))
	for name := range s.methods {
		names[name] = true
	}
	s.mu.RUnlock()
	if f := s.fixtures.Load(); f != nil {
		for name := range *f {
			names[name] = true
		}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type request struct {
	id      jsonrpc.ID
	version jsonrpc.Version
	method  string
	params  Params
}

// parseRequest 解析单个请求对象
// 出错时返回的 request 仍带有已读到的 id 与版本，供错误响应回显
// 缺少 "jsonrpc" 成员时视为 1.0
func parseRequest(body []byte) (*request, error) {
	req := &request{id: jsonrpc.NullID(), version: jsonrpc.V2}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		if json.Valid(body) {
			return req, errors.InvalidRequest("request must be a JSON object")
		}
		return req, errors.ParseError(err)
	}
	if fields == nil {
		return req, errors.InvalidRequest("request must be a JSON object")
	}

	if raw, ok := fields["id"]; ok {
		if err := req.id.UnmarshalJSON(raw); err != nil {
			req.id = jsonrpc.NullID()
			return req, errors.InvalidRequest("id must be a number, a string or null")
		}
	}

	req.version = jsonrpc.V1
	if raw, ok := fields["jsonrpc"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil || !jsonrpc.Version(v).Valid() {
			req.version = jsonrpc.V2
			return req, errors.InvalidRequest("jsonrpc must be \"1.0\" or \"2.0\"")
		}
		req.version = jsonrpc.Version(v)
	}

	raw, ok := fields["method"]
	if !ok {
		return req, errors.InvalidRequest("missing method")
	}
	if err := json.Unmarshal(raw, &req.method); err != nil || req.method == "" {
		return req, errors.InvalidRequest("method must be a non-empty string")
	}

	params, err := parseParams(fields["params"])
	if err != nil {
		return req, err
	}
	req.params = params
	return req, nil
}

func (s *Stub) invoke(ctx context.Context, req *request) (json.RawMessage, error) {
	if s.recorder != nil {
		s.recorder.IncrementStubRequests(req.method, req.version)
	}

	if f := s.fixtures.Load(); f != nil {
		if fixture, ok := (*f)[req.method]; ok {
			if fixture.Error != nil {
				return nil, fixture.Error
			}
			return fixture.Result, nil
		}
	}

	s.mu.RLock()
	h, ok := s.methods[req.method]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.MethodNotFound(req.method)
	}

	result, err := h(ctx, req.params)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Internal("encode result", err)
	}
	return raw, nil
}

// Respond 处理一个序列化的请求并返回序列化的响应
// 供按行分隔的连接与 WebSocket 使用
func (s *Stub) Respond(ctx context.Context, body []byte) []byte {
	req, err := parseRequest(body)
	var result json.RawMessage
	if err == nil {
		result, err = s.invoke(ctx, req)
	}
	logRequest(req, err)

	var resp []byte
	if err != nil {
		resp, err = json.Marshal(jsonrpc.NewErrorResponse[any](req.version, req.id, errors.ToRPCError(err, "")))
	} else {
		resp, err = json.Marshal(jsonrpc.NewResult(req.version, req.id, result))
	}
	if err != nil {
		log.Error().Err(err).Msg("encode stub response")
		resp, _ = json.Marshal(jsonrpc.NewErrorResponse[any](req.version, jsonrpc.NullID(), jsonrpc.ErrInternalError(nil)))
	}
	return resp
}

// Handle POST /rpc 处理函数
func (s *Stub) Handle(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestSize))
	if err != nil {
		errors.Err(c, errors.InvalidRequest("request body too large or unreadable"))
		return
	}

	req, err := parseRequest(body)
	c.Set(errors.KeyRPCID, req.id)
	c.Set(errors.KeyRPCVersion, req.version)
	if err == nil {
		var result json.RawMessage
		if result, err = s.invoke(c.Request.Context(), req); err == nil {
			logRequest(req, nil)
			c.JSON(http.StatusOK, jsonrpc.NewResult(req.version, req.id, result))
			return
		}
	}
	logRequest(req, err)
	errors.Err(c, err)
}

func logRequest(req *request, err error) {
	log.Debug().
		Str("method", req.method).
		Str("id", req.id.String()).
		Str("version", string(req.version)).
		AnErr("error", err).
		Msg("stub request")
}
