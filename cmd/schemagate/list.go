package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/schemagate/core/formatter"
	"github.com/artpar/schemagate/core/registry"
)

var listColumns = []string{"name", "kind", "properties", "required", "source"}

func newListCmd(flags *globalFlags) *cobra.Command {
	var noHeader bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the schemas in the schema directory",
		Long: `List the schemas in the schema directory.

Examples:
  schemagate list
  schemagate list -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := flags.output
			if name == "" {
				name = "table"
			}
			out, err := formatter.Lookup(name)
			if err != nil {
				return err
			}

			reg := registry.New(zerolog.Nop())
			if err := reg.Load(flags.schemas); err != nil {
				return err
			}

			var rows []map[string]any
			for _, e := range reg.List() {
				row := map[string]any{
					"name":   e.Name,
					"kind":   e.Node.Kind().String(),
					"source": e.Source,
				}
				if props := e.Node.PropertyNames(); len(props) > 0 {
					row["properties"] = len(props)
				}
				if req := e.Node.Required(); len(req) > 0 {
					row["required"] = req
				}
				rows = append(rows, row)
			}
			return out.FormatRows(cmd.OutOrStdout(), listColumns, rows, formatter.Options{NoHeader: noHeader})
		},
	}
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the table header")
	return cmd
}
