package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// FormatRows formats records as a table.
func (f *TableFormatter) FormatRows(w io.Writer, columns []string, rows []map[string]any, opts Options) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No schemas found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = formatCell(row[col], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatValue writes objects as "key: value" lines and anything else as
// indented JSON.
func (f *TableFormatter) FormatValue(w io.Writer, v any, opts Options) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return NewJSONFormatter().FormatValue(w, v, opts)
	}

	keys := sortedKeys(obj)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%s\n", k, formatCell(obj[k], opts.MaxWidth))
	}
	return tw.Flush()
}

func formatCell(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case int:
		str = strconv.Itoa(v)
	case float64:
		if v == float64(int64(v)) {
			str = strconv.FormatInt(int64(v), 10)
		} else {
			str = strconv.FormatFloat(v, 'f', -1, 64)
		}
	case []string:
		str = strings.Join(v, ",")
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}
	return str
}
