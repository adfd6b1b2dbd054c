package jrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/jrpc/internal/jrpc/conf"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
	"github.com/sjzar/jrpc/pkg/util"
)

func init() {
	rootCmd.AddCommand(callCmd)
	addClientFlags(callCmd)
	callCmd.Flags().StringVarP(&callParams, "params", "p", "", "arguments as a JSON array or object, instead of name=value pairs")
}

var callParams string

var callCmd = &cobra.Command{
	Use:   "call <method> [name=value...]",
	Short: "Call a JSON-RPC method and print its result",
	Long: `Call a JSON-RPC method and print its result.

Arguments are given as name=value pairs in declaration order. A value that is
valid JSON is sent as is, anything else is sent as a string. 1.0 requests send
the values positionally, 2.0 requests send them as a named object.`,
	Example: `jrpc call -u http://127.0.0.1:5040/rpc subtract subtrahend=5 minuend=4
jrpc call -u tcp://127.0.0.1:5041 -V 1.0 multiply 6 7
jrpc call -u ws://127.0.0.1:5040/ws echo -p '{"a":[1,2]}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := conf.LoadClientConfig(configDir, clientCmdConf(cmd))
		if err != nil {
			return err
		}

		callArgs := util.ParseArgs(args[1:])
		if callParams != "" {
			if len(args) > 1 {
				return fmt.Errorf("--params cannot be combined with name=value arguments")
			}
			if callArgs, err = util.ArgsFromJSON(callParams); err != nil {
				return err
			}
		}

		return runCall(cmd.Context(), c, args[0], callArgs, os.Stdout)
	},
}

func runCall(ctx context.Context, c *conf.ClientConfig, method string, args []jsonrpc.Arg, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, closer := newClient(c, nil)
	defer closer.Close()

	log.Debug().Str("url", c.URL).Str("method", method).Str("version", string(c.RPCVersion())).Int("args", len(args)).Msg("calling")

	result, err := jsonrpc.Call[json.RawMessage](ctx, client, method, c.RPCVersion(), args...)
	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		buf.Reset()
		buf.Write(result)
	}
	buf.WriteByte('\n')
	_, err = out.Write(buf.Bytes())
	return err
}
