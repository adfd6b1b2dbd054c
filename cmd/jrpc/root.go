package jrpc

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

func init() {
	// windows only
	cobra.MousetrapHelpText = ""

	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "debug")
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "config directory")
	rootCmd.PersistentPreRun = initLog
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportFailure(err)
		stop()
		os.Exit(1)
	}
}

// reportFailure logs err unless it is a call failure, which call and math
// already printed through describeError.
func reportFailure(err error) {
	if jsonrpc.KindOf(err) == "" {
		log.Err(err).Msg("command execution failed")
	}
	if Debug {
		log.Debug().Msg(errors.FormatErrorChain(err))
	}
}

var configDir string

var rootCmd = &cobra.Command{
	Use:   "jrpc",
	Short: "JSON-RPC 1.0/2.0 client and stub peer",
	Long: `jrpc calls methods on JSON-RPC 1.0 and 2.0 services over http(s), ws(s),
tcp and unix sockets, and runs a stub peer for testing clients.`,
	Example: `jrpc call --url http://127.0.0.1:5040/rpc subtract subtrahend=5 minuend=4
jrpc serve --addr 127.0.0.1:5040 --fixtures ./fixtures.json`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}
