package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/schemagate/core/formatter"
	"github.com/artpar/schemagate/core/registry"
	"github.com/artpar/schemagate/core/schema"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
)

func newValidateCmd(flags *globalFlags) *cobra.Command {
	var shortCircuit bool
	cmd := &cobra.Command{
		Use:   "validate <schema> [file]",
		Short: "Validate a JSON document against a schema",
		Long: `Validate a JSON document against a schema.

<schema> is a schema name from the schema directory or a path to a schema
file. The document is read from [file], or from stdin when it is omitted
or "-". Exits non-zero when the document is invalid.

Examples:
  schemagate validate user payload.json
  cat payload.json | schemagate validate ./schemas/user.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags, args, false, shortCircuit)
		},
	}
	cmd.Flags().BoolVar(&shortCircuit, "short-circuit", false, "stop at the first error")
	return cmd
}

func newCoerceCmd(flags *globalFlags) *cobra.Command {
	var shortCircuit bool
	cmd := &cobra.Command{
		Use:   "coerce <schema> [file]",
		Short: "Coerce a JSON document to a schema's shape, then validate it",
		Long: `Coerce a JSON document to a schema's shape and print the result.

Strings become numbers or booleans, numbers become strings, and JSON text
is parsed into arrays and objects where the schema asks for them. The
coerced document is printed to stdout; errors that remain go to stderr.

Examples:
  echo '{"age":"42"}' | schemagate coerce user`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags, args, true, shortCircuit)
		},
	}
	cmd.Flags().BoolVar(&shortCircuit, "short-circuit", false, "stop at the first error")
	return cmd
}

func newTemplateCmd(flags *globalFlags) *cobra.Command {
	var optional bool
	cmd := &cobra.Command{
		Use:   "template <schema>",
		Short: "Print an example document shaped like a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, resolver, err := loadSchema(flags.schemas, args[0])
			if err != nil {
				return err
			}
			opts := []schema.CallOption{schema.WithResolver(resolver)}
			if optional {
				opts = append(opts, schema.WithOptionalFields())
			}
			return flags.render(cmd.OutOrStdout(), entry.Node.Template(opts...))
		},
	}
	cmd.Flags().BoolVar(&optional, "optional", false, "include optional properties")
	return cmd
}

func runCheck(cmd *cobra.Command, flags *globalFlags, args []string, coerce, shortCircuit bool) error {
	entry, resolver, err := loadSchema(flags.schemas, args[0])
	if err != nil {
		return err
	}

	path := "-"
	if len(args) > 1 {
		path = args[1]
	}
	value, err := readJSON(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	if coerce {
		value = entry.Node.Coerce(value, schema.WithResolver(resolver))
	}

	opts := []schema.CallOption{schema.WithResolver(resolver)}
	if shortCircuit {
		opts = append(opts, schema.WithShortCircuit())
	}
	res, err := entry.Node.Validate(value, opts...)
	if err != nil {
		return fmt.Errorf("schema %s: %w", entry.Name, err)
	}

	if coerce {
		if err := flags.render(cmd.OutOrStdout(), value); err != nil {
			return err
		}
	}

	report := cmd.OutOrStdout()
	if coerce {
		report = cmd.ErrOrStderr()
	}
	if res.Valid {
		if !coerce {
			fmt.Fprintf(report, "%s %s matches %s\n", green("✓"), path, entry.Name)
		}
		return nil
	}

	fmt.Fprintf(report, "%s %s does not match %s (%d errors)\n", red("✗"), path, entry.Name, len(res.Errors))
	for _, e := range res.Errors {
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		fmt.Fprintf(report, "    %s %s %s\n", loc, dim(e.Keyword()+":"), e.Message)
	}
	return errInvalid
}

// loadSchema resolves ref as a schema file when one exists at that path,
// otherwise as a name in dir.
func loadSchema(dir, ref string) (registry.Entry, *schema.Resolver, error) {
	reg := registry.New(zerolog.Nop())

	if info, err := os.Stat(ref); err == nil && !info.IsDir() && schema.IsSchemaFile(ref) {
		doc, err := schema.ParseFile(ref)
		if err != nil {
			return registry.Entry{}, nil, err
		}
		if err := reg.Register(doc); err != nil {
			return registry.Entry{}, nil, err
		}
		entry, _ := reg.Get(doc.Name)
		return entry, reg.Resolver(), nil
	}

	if err := reg.Load(dir); err != nil {
		return registry.Entry{}, nil, err
	}
	entry, ok := reg.Get(ref)
	if !ok {
		return registry.Entry{}, nil, fmt.Errorf("schema %q not found in %s", ref, dir)
	}
	return entry, reg.Resolver(), nil
}

func readJSON(path string, stdin io.Reader) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// render writes a single document in the selected output format, JSON by
// default.
func (f *globalFlags) render(w io.Writer, v any) error {
	name := f.output
	if name == "" {
		name = "json"
	}
	out, err := formatter.Lookup(name)
	if err != nil {
		return err
	}
	return out.FormatValue(w, v, formatter.Options{})
}
