package jrpc

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sjzar/jrpc/internal/jrpc/conf"
	"github.com/sjzar/jrpc/internal/jrpc/math"
)

func init() {
	rootCmd.AddCommand(mathCmd)
	addClientFlags(mathCmd)
}

var mathCmd = &cobra.Command{
	Use:       "math <subtract|multiply> <a> <b>",
	Short:     "Call the arithmetic methods of a stub peer",
	Example:   `jrpc math -u http://127.0.0.1:5040/rpc subtract 5 4`,
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{"subtract", "multiply"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid operand %q: %w", args[1], err)
		}
		b, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid operand %q: %w", args[2], err)
		}

		c, _, err := conf.LoadClientConfig(configDir, clientCmdConf(cmd))
		if err != nil {
			return err
		}
		client, closer := newClient(c, nil)
		defer closer.Close()

		api := math.New(client, c.RPCVersion())
		var result int64
		switch args[0] {
		case "subtract":
			result, err = api.Subtract(cmd.Context(), a, b)
		case "multiply":
			result, err = api.Multiply(cmd.Context(), a, b)
		default:
			return fmt.Errorf("unknown operation %q", args[0])
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), describeError(err))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}
