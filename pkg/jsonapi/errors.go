package jsonapi

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrorBuilder assembles an Error.
type ErrorBuilder struct {
	e Error
}

// NewError starts an error with an HTTP status, a machine-readable code and
// a title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{e: Error{Status: strconv.Itoa(status), Code: code, Title: title}}
}

func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.e.Detail = detail
	return b
}

func (b *ErrorBuilder) Detailf(format string, args ...any) *ErrorBuilder {
	return b.Detail(fmt.Sprintf(format, args...))
}

// Pointer points the error at a location in the request body.
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	b.source().Pointer = pointer
	return b
}

// Parameter names the query parameter at fault.
func (b *ErrorBuilder) Parameter(name string) *ErrorBuilder {
	b.source().Parameter = name
	return b
}

// Header names the request header at fault.
func (b *ErrorBuilder) Header(name string) *ErrorBuilder {
	b.source().Header = name
	return b
}

func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.e.Meta == nil {
		b.e.Meta = Meta{}
	}
	b.e.Meta[key] = value
	return b
}

func (b *ErrorBuilder) Build() Error { return b.e }

func (b *ErrorBuilder) source() *ErrorSource {
	if b.e.Source == nil {
		b.e.Source = &ErrorSource{}
	}
	return b.e.Source
}

// StatusCode parses Status; it is 0 when Status is not a number.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

func ErrBadRequest(detail string) Error {
	return NewError(400, "bad_request", "Bad Request").Detail(detail).Build()
}

func ErrNotFound(resourceType string) Error {
	return NewError(404, "not_found", "Not Found").
		Detailf("The requested %s was not found", resourceType).
		Build()
}

// ErrNotFoundWithID reports a missing resource by id.
func ErrNotFoundWithID(resourceType, id string) Error {
	return NewError(404, "not_found", "Not Found").
		Detailf("No %s named %q", resourceType, id).
		Build()
}

// ErrMethodNotAllowed lists the allowed methods in the detail when known.
func ErrMethodNotAllowed(method string, allowed []string) Error {
	b := NewError(405, "method_not_allowed", "Method Not Allowed").Meta("method", method)
	if len(allowed) == 0 {
		return b.Detailf("The %s method is not allowed for this resource", method).Build()
	}
	return b.Detailf("%s is not supported. Use one of: %s", method, strings.Join(allowed, ", ")).Build()
}

// ErrPayloadTooLarge reports a request body over limit bytes.
func ErrPayloadTooLarge(limit int64) Error {
	return NewError(413, "payload_too_large", "Payload Too Large").
		Detailf("Request body exceeds %d bytes", limit).
		Meta("limit", limit).
		Build()
}

func ErrUnsupportedMediaType(contentType string) Error {
	return NewError(415, "unsupported_media_type", "Unsupported Media Type").
		Detailf("Content type %q is not supported, send application/json", contentType).
		Header("Content-Type").
		Build()
}

func ErrInternal(detail string) Error {
	return NewError(500, "internal_error", "Internal Server Error").Detail(orDefault(detail, "An internal error occurred")).Build()
}

// ErrBadGateway reports an upstream failure.
func ErrBadGateway(detail string) Error {
	return NewError(502, "upstream_error", "Bad Gateway").Detail(orDefault(detail, "Upstream request failed")).Build()
}

// ErrServiceUnavailable reports a dependency that is not ready.
func ErrServiceUnavailable(detail string) Error {
	return NewError(503, "service_unavailable", "Service Unavailable").Detail(orDefault(detail, "Service temporarily unavailable")).Build()
}

// ErrFromError wraps a Go error as an internal error.
func ErrFromError(err error) Error {
	if err == nil {
		return ErrInternal("")
	}
	return ErrInternal(err.Error())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
