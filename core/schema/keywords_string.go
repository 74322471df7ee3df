package schema

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

func validateMinLength(n *Node, value any, st *state) (Result, error) {
	s, ok := value.(string)
	if !ok {
		return Result{}, errInvalidType
	}
	if utf8.RuneCountInString(s) < *n.minLength {
		return st.fail("minLength", value, "Expected string with at least %d characters", *n.minLength), nil
	}
	return validResult(), nil
}

func validateMaxLength(n *Node, value any, st *state) (Result, error) {
	s, ok := value.(string)
	if !ok {
		return Result{}, errInvalidType
	}
	if utf8.RuneCountInString(s) > *n.maxLength {
		return st.fail("maxLength", value, "Expected string with at most %d characters", *n.maxLength), nil
	}
	return validResult(), nil
}

func validatePattern(n *Node, value any, st *state) (Result, error) {
	s, ok := value.(string)
	if !ok {
		return Result{}, errInvalidType
	}
	if !n.pattern.re.MatchString(s) {
		return st.fail("pattern", value, "Expected string to match pattern %s", n.pattern.source), nil
	}
	return validResult(), nil
}

// compile builds the regular expression. A source of the form /body/flags
// maps the i, m and s flags onto Go flag syntax and drops the rest.
func (p *pattern) compile() error {
	if p.re != nil {
		return nil
	}
	expr := p.source
	if body, flags, ok := splitDelimited(p.source); ok {
		var keep strings.Builder
		for _, f := range flags {
			if f == 'i' || f == 'm' || f == 's' {
				if !strings.ContainsRune(keep.String(), f) {
					keep.WriteRune(f)
				}
			}
		}
		expr = body
		if keep.Len() > 0 {
			expr = "(?" + keep.String() + ")" + body
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	p.re = re
	return nil
}

// splitDelimited recognizes /body/flags where flags are distinct
// ECMAScript regex flags. Anything else, including a bare /body/ or a
// path such as /api/users, is an ordinary expression.
const ecmaFlags = "dgimsuyv"

func splitDelimited(src string) (body, flags string, ok bool) {
	if len(src) < 3 || src[0] != '/' {
		return "", "", false
	}
	end := strings.LastIndexByte(src, '/')
	if end <= 0 || end == len(src)-1 {
		return "", "", false
	}
	flags = src[end+1:]
	for i, r := range flags {
		if !strings.ContainsRune(ecmaFlags, r) || strings.ContainsRune(flags[:i], r) {
			return "", "", false
		}
	}
	return src[1:end], flags, true
}
