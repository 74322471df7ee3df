package formatter

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatRows writes {"count": n, "data": [...]} keeping only columns.
func (f *JSONFormatter) FormatRows(w io.Writer, columns []string, rows []map[string]any, opts Options) error {
	data := project(columns, rows)
	return f.encode(w, map[string]any{
		"count": len(data),
		"data":  data,
	}, opts.Compact)
}

// FormatValue writes v as JSON.
func (f *JSONFormatter) FormatValue(w io.Writer, v any, opts Options) error {
	return f.encode(w, v, opts.Compact)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// project keeps only the named columns of each row.
func project(columns []string, rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		kept := make(map[string]any, len(columns))
		for _, col := range columns {
			if v, ok := row[col]; ok {
				kept[col] = v
			}
		}
		out[i] = kept
	}
	return out
}
