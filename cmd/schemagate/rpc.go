package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artpar/schemagate/bootstrap"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/registry"
)

// stdio joins stdin and stdout into one stream.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }

func newRPCCmd(flags *globalFlags) *cobra.Command {
	var (
		listen string
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "rpc",
		Short: "Serve schema tools over JSON-RPC 2.0",
		Long: `Serve schema tools over JSON-RPC 2.0.

Methods:
  tools/list   describe the tools and their input schemas
  tools/call   run a tool: list_schemas, validate, coerce, template, merge

Messages use Content-Length framing. By default the server speaks on
stdin/stdout and logs to stderr; --listen serves TCP connections instead.

Examples:
  schemagate rpc --schemas ./schemas
  schemagate rpc --listen 127.0.0.1:7070`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := bootstrap.NewLogger(config.LoggingConfig{
				Level:  envOr("SCHEMAGATE_LOG_LEVEL", "info"),
				Format: "console",
			}, cmd.ErrOrStderr())

			reg := registry.New(logger)
			if err := reg.Load(flags.schemas); err != nil {
				return err
			}
			if watch {
				if err := reg.Watch(flags.schemas); err != nil {
					return err
				}
				defer reg.Stop()
			}

			srv, err := bootstrap.NewRPCServer(reg, nil, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if listen != "" {
				return srv.ListenAndServe(ctx, listen)
			}
			logger.Info().Int("schemas", len(reg.List())).Msg("json-rpc server on stdio")
			return srv.Serve(ctx, stdio{Reader: cmd.InOrStdin(), Writer: cmd.OutOrStdout()})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "TCP address to listen on instead of stdio")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload schemas when files change")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
