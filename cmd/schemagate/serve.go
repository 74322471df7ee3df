package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/schemagate/bootstrap"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the schemagate HTTP server.

The server will:
  - Load configuration from --config (or $SCHEMAGATE_CONFIG)
  - Or load configuration from SCHEMAGATE_* environment variables
  - Load schemas from schemas.dir and optionally watch for changes
  - Serve the schema API, /openapi.json and the Swagger UI at /docs/
  - Validate gateway routes and forward them to the upstream

Environment variables (for Docker deployments):
  SCHEMAGATE_SCHEMAS_DIR    - Schema directory (default: schemas)
  SCHEMAGATE_SERVER_PORT    - Server port (default: 8080)
  SCHEMAGATE_UPSTREAM_URL   - Upstream for gateway routes
  SCHEMAGATE_LOG_LEVEL      - Log level: debug, info, warn, error

Examples:
  schemagate serve
  schemagate serve --config /etc/schemagate/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(bootstrap.Options{
				ConfigPath: flags.config,
				Version:    version,
			})
			if err != nil {
				return err
			}
			return app.Run()
		},
	}
}
