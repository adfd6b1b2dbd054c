package jrpc

import (
	"context"
	"net"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/internal/jrpc/conf"
	httpsvc "github.com/sjzar/jrpc/internal/jrpc/http"
	"github.com/sjzar/jrpc/internal/jrpc/stub"
	"github.com/sjzar/jrpc/internal/metrics"
	"github.com/sjzar/jrpc/pkg/filemonitor"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "http address, default "+conf.DefaultHTTPAddr)
	serveCmd.Flags().StringVar(&serveStreamAddr, "stream-addr", "", "also answer newline-delimited requests on this tcp address")
	serveCmd.Flags().StringVarP(&serveFixtures, "fixtures", "f", "", "fixtures file, reloaded on change")
	serveCmd.Flags().StringVar(&serveUpstream, "upstream", "", "service the MCP bridge forwards to")
	serveCmd.Flags().StringVar(&serveUpstreamVersion, "upstream-version", "", "protocol version used for the upstream, 1.0 or 2.0")
}

var (
	serveAddr            string
	serveStreamAddr      string
	serveFixtures        string
	serveUpstream        string
	serveUpstreamVersion string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stub JSON-RPC peer",
	Long: `Run the stub JSON-RPC peer.

The peer answers subtract, multiply and echo plus any method listed in the
fixtures file on POST /rpc and GET /ws. With --upstream it also serves an MCP
endpoint on /mcp that forwards tool calls to the upstream service.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmdConf := make(map[string]any)
		flags := cmd.Flags()
		if flags.Changed("addr") {
			cmdConf["http_addr"] = serveAddr
		}
		if flags.Changed("stream-addr") {
			cmdConf["stream_addr"] = serveStreamAddr
		}
		if flags.Changed("fixtures") {
			cmdConf["fixtures"] = serveFixtures
		}
		if flags.Changed("upstream") {
			cmdConf["upstream"] = serveUpstream
		}
		if flags.Changed("upstream-version") {
			cmdConf["upstream_version"] = serveUpstreamVersion
		}

		c, _, err := conf.LoadServerConfig(configDir, cmdConf)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), c)
	},
}

func runServe(ctx context.Context, c *conf.ServerConfig) (err error) {
	m := metrics.NewMetrics(nil)
	s := stub.New(m)

	if c.Fixtures != "" {
		fm := filemonitor.NewFileMonitor(filemonitor.DefaultDebounce)
		if err := s.WatchFixtures(fm, c.Fixtures); err != nil {
			return errors.Config("load fixtures "+c.Fixtures, err)
		}
		if err := fm.Start(); err != nil {
			return err
		}
		defer func() { err = errors.JoinErrors(err, fm.Stop()) }()
	}

	var upstream *httpsvc.Upstream
	if uc := c.UpstreamClient(); uc != nil {
		client, closer := newClient(uc, m)
		defer closer.Close()
		upstream = &httpsvc.Upstream{Client: client, Version: uc.RPCVersion()}
	}

	if c.StreamAddr != "" {
		l, err := net.Listen("tcp", c.StreamAddr)
		if err != nil {
			return errors.Internal("listen "+c.StreamAddr, err)
		}
		log.Info().Msgf("stream listener started on %s", l.Addr())
		go func() {
			if err := s.Serve(ctx, l); err != nil {
				log.Err(err).Msg("stream listener stopped")
			}
		}()
	}

	svc := httpsvc.NewService(c, s, m, upstream)
	if err := svc.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return svc.Stop()
}
