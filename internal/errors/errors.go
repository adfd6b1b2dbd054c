package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

// 错误类型
const (
	ErrTypeParse          = "parse"
	ErrTypeInvalidRequest = "invalid_request"
	ErrTypeNotFound       = "method_not_found"
	ErrTypeInvalidArg     = "invalid_argument"
	ErrTypeUpstream       = "upstream"
	ErrTypeConfig         = "config"
	ErrTypeInternal       = "internal"
)

// AppError 表示服务端错误，Code 为 JSON-RPC 错误码
type AppError struct {
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	Cause     error    `json:"-"`
	Code      int      `json:"-"`
	Stack     []string `json:"-"`
	RequestID string   `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) String() string {
	return e.Error()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithStack 记录调用栈
func (e *AppError) WithStack() *AppError {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	e.Stack = stack
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// RPCError 转换为返回给调用方的 JSON-RPC 错误对象
func (e *AppError) RPCError() *jsonrpc.RPCError {
	data := map[string]string{"type": e.Type}
	if e.RequestID != "" {
		data["request_id"] = e.RequestID
	}
	message := e.Message
	if e.Cause != nil {
		message = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return jsonrpc.NewRPCError(e.Code, message, data)
}

func New(errType, message string, cause error, code int) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// Wrap 包装错误；已是 AppError 时保留类型和错误码，只替换消息
func Wrap(err error, errType, message string, code int) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Type:    appErr.Type,
			Message: message,
			Cause:   appErr.Cause,
			Code:    appErr.Code,
			Stack:   appErr.Stack,
		}
	}

	return New(errType, message, err, code)
}

func Is(err error, errType string) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

func GetType(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return "unknown"
}

// GetCode 返回 JSON-RPC 错误码，未知错误按 Internal error 处理
func GetCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return jsonrpc.CodeInternalError
}

// RootCause 获取错误链中的根本原因
func RootCause(err error) error {
	for err != nil {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
	return err
}

func ParseError(cause error) *AppError {
	return New(ErrTypeParse, "parse error", cause, jsonrpc.CodeParseError)
}

func InvalidRequest(reason string) *AppError {
	return New(ErrTypeInvalidRequest, fmt.Sprintf("invalid request: %s", reason), nil, jsonrpc.CodeInvalidRequest)
}

func MethodNotFound(method string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("method not found: %s", method), nil, jsonrpc.CodeMethodNotFound)
}

func InvalidArg(arg string) *AppError {
	return New(ErrTypeInvalidArg, fmt.Sprintf("invalid argument: %s", arg), nil, jsonrpc.CodeInvalidParams)
}

// Upstream 转发到上游服务失败
func Upstream(method string, cause error) *AppError {
	code := jsonrpc.CodeInternalError
	if remote, ok := jsonrpc.RemoteCode(cause); ok {
		code = remote
	}
	return New(ErrTypeUpstream, fmt.Sprintf("upstream call %s failed", method), cause, code)
}

func Config(message string, cause error) *AppError {
	return New(ErrTypeConfig, message, cause, jsonrpc.CodeInternalError).WithStack()
}

func Internal(message string, cause error) *AppError {
	return New(ErrTypeInternal, message, cause, jsonrpc.CodeInternalError).WithStack()
}
