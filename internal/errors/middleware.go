package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

// gin 上下文键
const (
	KeyRequestID  = "RequestID"
	KeyRPCID      = "RPCID"
	KeyRPCVersion = "RPCVersion"
)

// Err 以 JSON-RPC 错误响应返回 err
// 请求的 id 与版本取自上下文，解析请求前出错时使用 null 与 2.0
func Err(c *gin.Context, err error) {
	rpcErr := ToRPCError(err, c.GetString(KeyRequestID))

	id := jsonrpc.NullID()
	if v, ok := c.Get(KeyRPCID); ok {
		if rpcID, ok := v.(jsonrpc.ID); ok {
			id = rpcID
		}
	}
	version := jsonrpc.V2
	if v, ok := c.Get(KeyRPCVersion); ok {
		if rpcVersion, ok := v.(jsonrpc.Version); ok && rpcVersion.Valid() {
			version = rpcVersion
		}
	}

	c.JSON(http.StatusOK, jsonrpc.NewErrorResponse[any](version, id, rpcErr))
}

// ToRPCError 转换为 JSON-RPC 错误对象
// 已是 *jsonrpc.RPCError 的错误原样返回，其他错误按 Internal error 处理
func ToRPCError(err error, requestID string) *jsonrpc.RPCError {
	if appErr, ok := AsAppError(err); ok {
		if requestID != "" {
			appErr.RequestID = requestID
		}
		return appErr.RPCError()
	}
	if rpcErr, ok := err.(*jsonrpc.RPCError); ok {
		return rpcErr
	}
	appErr := New("unknown", err.Error(), nil, jsonrpc.CodeInternalError)
	appErr.RequestID = requestID
	return appErr.RPCError()
}

// ErrorHandlerMiddleware 为每个请求生成请求 ID，并将处理过程中记录的第一个错误
// 以 JSON-RPC 错误响应返回
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(KeyRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Err(c, c.Errors[0].Err)
			c.Abort()
		}
	}
}

// RecoveryMiddleware 从 panic 恢复并返回 Internal error
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := c.GetString(KeyRequestID)

				var err *AppError
				switch v := r.(type) {
				case error:
					err = Internal("panic recovered", v).WithRequestID(requestID)
				default:
					err = Internal(fmt.Sprintf("panic recovered: %v", r), nil).WithRequestID(requestID)
				}

				log.Error().Err(err).Str("request_id", requestID).Strs("stack", err.Stack).Msg("panic recovered")

				Err(c, err)
				c.Abort()
			}
		}()

		c.Next()
	}
}
