package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/schemagate/core/merge"
)

func newMergeCmd(flags *globalFlags) *cobra.Command {
	var shallow bool
	cmd := &cobra.Command{
		Use:   "merge [file]",
		Short: "Collapse allOf in a JSON Schema document",
		Long: `Collapse allOf in a JSON Schema document and print the result.

Branches are intersected keyword by keyword: types narrow, bounds tighten,
required lists union and properties merge recursively. Branches that cannot
be intersected, such as disjoint types, are an error.

Examples:
  schemagate merge composed.json
  schemagate merge --shallow < composed.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) > 0 {
				path = args[0]
			}
			doc, err := readJSON(path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var opts []merge.Option
			if shallow {
				opts = append(opts, merge.Shallow())
			}
			merged, err := merge.AllOf(doc, opts...)
			if err != nil {
				return err
			}
			return flags.render(cmd.OutOrStdout(), merged)
		},
	}
	cmd.Flags().BoolVar(&shallow, "shallow", false, "merge only the root allOf")
	return cmd
}
