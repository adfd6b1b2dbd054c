package http

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/internal/jrpc/conf"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
	"github.com/sjzar/jrpc/pkg/util"
	"github.com/sjzar/jrpc/pkg/version"
)

func (s *Service) initMCPServer() {
	s.mcpServer = server.NewMCPServer(conf.AppName, version.Version)
	s.mcpServer.AddTool(CallTool, s.handleMCPCall)
	s.mcpStreamableServer = server.NewStreamableHTTPServer(s.mcpServer)
}

var CallTool = mcp.NewTool(
	"jsonrpc_call",
	mcp.WithDescription(`Call a method on the configured JSON-RPC service and return its result as JSON.
A JSON-RPC error reported by the service is returned as a tool error carrying its code, message and data.`),
	mcp.WithString("method", mcp.Description("Name of the remote method"), mcp.Required()),
	mcp.WithString("params", mcp.Description(`Arguments as JSON: an array for positional arguments, e.g. [5, 4], or an object for named arguments, e.g. {"subtrahend": 5, "minuend": 4}. Omit for a call without arguments.`)),
	mcp.WithString("version", mcp.Description(`Protocol version, "1.0" or "2.0". Defaults to the version configured for the service.`)),
)

type CallRequest struct {
	Method  string `json:"method"`
	Params  string `json:"params"`
	Version string `json:"version"`
}

func (s *Service) handleMCPCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req CallRequest
	if err := request.BindArguments(&req); err != nil {
		log.Error().Err(err).Interface("request", request.GetRawArguments()).Msg("Failed to bind arguments")
		return errors.ErrMCPTool(err), nil
	}
	if req.Method == "" {
		return errors.ErrMCPTool(errors.InvalidArg("method")), nil
	}

	rpcVersion := s.upstream.Version
	if req.Version != "" {
		v, err := jsonrpc.ParseVersion(req.Version)
		if err != nil {
			return errors.ErrMCPTool(errors.InvalidArg("version")), nil
		}
		rpcVersion = v
	}

	args, err := util.ArgsFromJSON(req.Params)
	if err != nil {
		return errors.ErrMCPTool(errors.Wrap(err, errors.ErrTypeInvalidArg, "invalid params", jsonrpc.CodeInvalidParams)), nil
	}

	result, err := jsonrpc.Call[json.RawMessage](ctx, s.upstream.Client, req.Method, rpcVersion, args...)
	if err != nil {
		log.Debug().Err(err).Str("method", req.Method).Msg("upstream call failed")
		return errors.ErrMCPTool(errors.Upstream(req.Method, err)), nil
	}

	text := string(result)
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err == nil {
		text = buf.String()
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}, nil
}
