package errors

import "github.com/mark3labs/mcp-go/mcp"

// ErrMCPTool 将错误作为工具调用结果返回给 MCP 客户端
func ErrMCPTool(err error) *mcp.CallToolResult {
	text := err.Error()
	if appErr, ok := AsAppError(err); ok {
		rpcErr := appErr.RPCError()
		text = rpcErr.Error()
		if rpcErr.HasData() {
			text += " " + string(rpcErr.Data)
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
		IsError: true,
	}
}
