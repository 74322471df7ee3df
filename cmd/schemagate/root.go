package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// errInvalid reports a value that failed validation. The details have
// already been printed.
var errInvalid = errors.New("value does not match schema")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config  string
	schemas string
	noColor bool
	output  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "schemagate",
		Short: "JSON Schema validation, coercion and a validating gateway",
		Long: `schemagate checks JSON documents against JSON Schema 2020-12 schemas.

Schemas are loaded from a directory of .json/.yaml files and addressed by
their $id (or file name).

Quick start:
  schemagate validate user payload.json   # Validate a document
  schemagate coerce user payload.json     # Coerce, then validate
  schemagate template user                # Print an example document
  schemagate serve                        # Start the HTTP server
  schemagate rpc                          # JSON-RPC tool server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "config file path (default: $SCHEMAGATE_CONFIG)")
	root.PersistentFlags().StringVarP(&flags.schemas, "schemas", "s", "schemas", "schema directory")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "", "output format: json, yaml or table")

	root.AddCommand(
		newValidateCmd(flags),
		newCoerceCmd(flags),
		newTemplateCmd(flags),
		newListCmd(flags),
		newMergeCmd(flags),
		newServeCmd(flags),
		newRPCCmd(flags),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		}
		os.Exit(1)
	}
}
