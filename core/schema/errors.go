package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors for schema configuration problems. Data that fails
// validation is never reported through these; see Result.
var (
	ErrUnsupportedKeyword = errors.New("unsupported keyword")
	ErrNotImplemented     = errors.New("not implemented")
	ErrInvalidKeyword     = errors.New("invalid keyword value")
	ErrMissingID          = errors.New("schema has no $id")
	ErrRefNotFound        = errors.New("ref not found")
	ErrRefCycle           = errors.New("ref cycle")
)

// errInvalidType is raised by a keyword validator when the value is not of
// the type the keyword applies to.
var errInvalidType = errors.New("invalid type for keyword")

// SchemaError reports a problem with the schema itself.
type SchemaError struct {
	Keyword string // offending keyword, if any
	Path    string // keyword location as a JSON Pointer
	Reason  string
	Err     error
}

func (e *SchemaError) Error() string {
	msg := e.Err.Error()
	if e.Keyword != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Keyword)
	}
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func schemaError(err error, keyword string, path []string, format string, args ...any) *SchemaError {
	return &SchemaError{
		Keyword: keyword,
		Path:    Pointer(path...),
		Reason:  fmt.Sprintf(format, args...),
		Err:     err,
	}
}
