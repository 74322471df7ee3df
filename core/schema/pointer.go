package schema

import (
	"fmt"
	"strings"
)

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// Pointer renders segments as an RFC 6901 JSON Pointer. No segments
// render as the empty pointer, which addresses the whole document.
func Pointer(segments ...string) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(s))
	}
	return b.String()
}

// ParsePointer splits a JSON Pointer into unescaped segments. A leading
// "#" fragment marker is accepted.
func ParsePointer(p string) ([]string, error) {
	p = strings.TrimPrefix(p, "#")
	if p == "" {
		return nil, nil
	}
	if !strings.HasPrefix(p, "/") {
		return nil, fmt.Errorf("json pointer %q must start with /", p)
	}
	parts := strings.Split(p[1:], "/")
	for i, part := range parts {
		parts[i] = pointerUnescaper.Replace(part)
	}
	return parts, nil
}

func appendPath(base []string, segments ...string) []string {
	out := make([]string, 0, len(base)+len(segments))
	out = append(out, base...)
	return append(out, segments...)
}
