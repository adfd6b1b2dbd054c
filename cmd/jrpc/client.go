package jrpc

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sjzar/jrpc/internal/jrpc/conf"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
	"github.com/sjzar/jrpc/pkg/transport"
)

var (
	clientURL         string
	clientVersion     string
	clientTimeout     string
	clientHeaders     []string
	clientCompression bool
	clientIDPolicy    string
	clientStrictIDs   bool
)

// addClientFlags registers the flags shared by the commands that talk to a
// JSON-RPC service.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&clientURL, "url", "u", "", "service address (http, https, ws, wss, tcp or unix)")
	cmd.Flags().StringVarP(&clientVersion, "rpc-version", "V", "", "protocol version, 1.0 or 2.0")
	cmd.Flags().StringVarP(&clientTimeout, "timeout", "t", "", "call timeout, e.g. 5s")
	cmd.Flags().StringSliceVarP(&clientHeaders, "header", "H", nil, "extra request header, key=value")
	cmd.Flags().BoolVar(&clientCompression, "compression", false, "accept gzip and zstd compressed responses")
	cmd.Flags().StringVar(&clientIDPolicy, "id-policy", "", "request id policy, counter or uuid")
	cmd.Flags().BoolVar(&clientStrictIDs, "strict-ids", false, "reject responses whose id does not match the request")
}

// clientCmdConf collects the flags the user set explicitly, so that unset
// flags do not shadow the environment and the config file.
func clientCmdConf(cmd *cobra.Command) map[string]any {
	cmdConf := make(map[string]any)
	flags := cmd.Flags()
	if flags.Changed("url") {
		cmdConf["url"] = clientURL
	}
	if flags.Changed("rpc-version") {
		cmdConf["version"] = clientVersion
	}
	if flags.Changed("timeout") {
		cmdConf["timeout"] = clientTimeout
	}
	if flags.Changed("header") {
		cmdConf["headers"] = clientHeaders
	}
	if flags.Changed("compression") {
		cmdConf["compression"] = clientCompression
	}
	if flags.Changed("id-policy") {
		cmdConf["id_policy"] = clientIDPolicy
	}
	if flags.Changed("strict-ids") {
		cmdConf["strict_ids"] = clientStrictIDs
	}
	return cmdConf
}

// newClient builds a client routed by the scheme of the configured URL.
// The returned closer releases pooled stream and websocket connections.
func newClient(c *conf.ClientConfig, observer jsonrpc.Observer) (*jsonrpc.Client, io.Closer) {
	router := transport.NewRouter(c.TransportOptions())
	opts := []jsonrpc.Option{
		jsonrpc.WithIDGenerator(c.IDGenerator()),
		jsonrpc.WithStrictIDs(c.StrictIDs),
	}
	if observer != nil {
		opts = append(opts, jsonrpc.WithObserver(observer))
	}
	return jsonrpc.NewClient(router, c.URL, opts...), router
}

// describeError renders err with its kind and, for remote errors, the code
// and data reported by the peer.
func describeError(err error) string {
	if rpcErr, ok := jsonrpc.AsRPCError(err); ok {
		s := fmt.Sprintf("remote error %d: %s", rpcErr.Code, rpcErr.Message)
		if rpcErr.HasData() {
			s += "\ndata: " + string(rpcErr.Data)
		}
		return s
	}
	return fmt.Sprintf("%s error: %v", jsonrpc.KindOf(err), err)
}
