package formatter

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// FormatRows writes the rows as a YAML sequence under "data".
func (f *YAMLFormatter) FormatRows(w io.Writer, columns []string, rows []map[string]any, opts Options) error {
	data := project(columns, rows)
	return f.encode(w, map[string]any{
		"count": len(data),
		"data":  data,
	})
}

// FormatValue writes v as YAML.
func (f *YAMLFormatter) FormatValue(w io.Writer, v any, opts Options) error {
	return f.encode(w, v)
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}
