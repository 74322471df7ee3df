package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/registry"
	"github.com/artpar/schemagate/core/schema"
	"github.com/artpar/schemagate/pkg/jsonapi"
)

// ErrSchemaNotFound is returned when a route names an unregistered schema.
var ErrSchemaNotFound = errors.New("schema not registered")

// SchemaStore is the part of the registry the HTTP layer reads.
type SchemaStore interface {
	Get(name string) (registry.Entry, bool)
	List() []registry.Entry
	Resolver() *schema.Resolver
	Revision() string
}

const defaultMaxBody = 1 << 20

type ctxKey int

const (
	bodyKey ctxKey = iota
	queryKey
)

// BodyFromContext returns the request body decoded and validated by
// ValidateBody.
func BodyFromContext(ctx context.Context) (any, bool) {
	v, ok := ctx.Value(bodyKey).(validated)
	return v.value, ok
}

// QueryFromContext returns the query parameters coerced and validated by
// ValidateQuery.
func QueryFromContext(ctx context.Context) (map[string]any, bool) {
	v, ok := ctx.Value(queryKey).(validated)
	if !ok {
		return nil, false
	}
	m, _ := v.value.(map[string]any)
	return m, true
}

type validated struct {
	value any
}

// Validator checks request data against registered schemas. Settings are
// read on every request so configuration reloads apply immediately.
type Validator struct {
	store    SchemaStore
	settings func() config.ValidationConfig
	metrics  *metrics.Collector
	logger   zerolog.Logger
}

// NewValidator creates a validator. A nil settings func uses defaults.
func NewValidator(store SchemaStore, settings func() config.ValidationConfig, m *metrics.Collector, logger zerolog.Logger) *Validator {
	if settings == nil {
		settings = func() config.ValidationConfig { return config.ValidationConfig{MaxBodyBytes: defaultMaxBody} }
	}
	return &Validator{
		store:    store,
		settings: settings,
		metrics:  m,
		logger:   logger,
	}
}

// Check optionally coerces value and validates it against the named schema.
// The returned value is the coerced one.
func (v *Validator) Check(name string, value any, coerce bool) (any, schema.Result, error) {
	entry, ok := v.store.Get(name)
	if !ok {
		return value, schema.Result{}, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}
	resolver := v.store.Resolver()
	settings := v.settings()

	if coerce {
		value = entry.Node.Coerce(value, schema.WithResolver(resolver))
		v.metrics.ObserveCoercion(name)
	}

	opts := []schema.CallOption{schema.WithResolver(resolver)}
	if settings.ShortCircuit {
		opts = append(opts, schema.WithShortCircuit())
	}

	start := time.Now()
	res, err := entry.Node.Validate(value, opts...)
	if err != nil {
		return value, res, fmt.Errorf("schema %s: %w", name, err)
	}
	v.metrics.ObserveValidation(name, res, time.Since(start))
	return value, res, nil
}

// ValidateBody returns middleware that decodes the JSON request body,
// coerces it when validation.coerce_body is set, and rejects it with a 400
// JSON:API document unless it matches the named schema. The forwarded body
// is the coerced document.
func (v *Validator) ValidateBody(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			settings := v.settings()
			if settings.MaxBodyBytes <= 0 {
				settings.MaxBodyBytes = defaultMaxBody
			}

			if ct := r.Header.Get("Content-Type"); ct != "" {
				mt, _, err := mime.ParseMediaType(ct)
				if err != nil || !isJSONMediaType(mt) {
					jsonapi.WriteError(w, jsonapi.ErrUnsupportedMediaType(ct))
					return
				}
			}

			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, settings.MaxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					jsonapi.WriteError(w, jsonapi.ErrPayloadTooLarge(settings.MaxBodyBytes))
					return
				}
				jsonapi.WriteBadRequest(w, "Failed to read request body")
				return
			}
			if len(bytes.TrimSpace(data)) == 0 {
				jsonapi.WriteError(w, jsonapi.NewError(400, "missing_body", "Bad Request").
					Detail("Request body is required").
					Pointer("").
					Build())
				return
			}

			var body any
			if err := json.Unmarshal(data, &body); err != nil {
				jsonapi.WriteError(w, jsonapi.NewError(400, "invalid_json", "Bad Request").
					Detailf("Request body is not valid JSON: %v", err).
					Build())
				return
			}

			body, res, err := v.Check(name, body, settings.CoerceBody)
			if err != nil {
				v.writeSchemaError(w, r, name, err)
				return
			}
			if !res.Valid {
				writeValidationErrors(w, name, res, bodySource)
				return
			}

			if settings.CoerceBody {
				if data, err = json.Marshal(body); err != nil {
					v.writeSchemaError(w, r, name, err)
					return
				}
			}
			r.Body = io.NopCloser(bytes.NewReader(data))
			r.ContentLength = int64(len(data))

			ctx := context.WithValue(r.Context(), bodyKey, validated{value: body})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateQuery returns middleware that checks the query string against the
// named object schema. Query values are coerced first unless
// validation.coerce_query is false; parameters declared as arrays always
// receive every value.
func (v *Validator) ValidateQuery(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry, ok := v.store.Get(name)
			if !ok {
				v.writeSchemaError(w, r, name, fmt.Errorf("%w: %s", ErrSchemaNotFound, name))
				return
			}

			query := queryValues(r, objectNode(entry.Node, v.store.Resolver()))

			value, res, err := v.Check(name, query, v.settings().QueryCoercion())
			if err != nil {
				v.writeSchemaError(w, r, name, err)
				return
			}
			if !res.Valid {
				writeValidationErrors(w, name, res, querySource)
				return
			}

			ctx := context.WithValue(r.Context(), queryKey, validated{value: value})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeSchemaError reports a broken or missing schema. These are server
// faults, never the client's.
func (v *Validator) writeSchemaError(w http.ResponseWriter, r *http.Request, name string, err error) {
	v.logger.Error().
		Err(err).
		Str("schema", name).
		Str("path", r.URL.Path).
		Msg("schema error")
	jsonapi.WriteError(w, jsonapi.NewError(500, "schema_error", "Internal Server Error").
		Detail(err.Error()).
		Meta("schema", name).
		Build())
}

// objectNode follows refs to the object schema describing a query string.
func objectNode(n *schema.Node, resolver *schema.Resolver) *schema.Node {
	for i := 0; n != nil && n.Kind() == schema.KindRef && i < 32; i++ {
		target, err := resolver.Lookup(n.RefPointer())
		if err != nil {
			return nil
		}
		n = target
	}
	if n == nil || n.Kind() != schema.KindObject {
		return nil
	}
	return n
}

func queryValues(r *http.Request, obj *schema.Node) map[string]any {
	out := make(map[string]any)
	for key, values := range r.URL.Query() {
		isArray := false
		if obj != nil {
			if prop, ok := obj.Property(key); ok {
				isArray = prop.Kind() == schema.KindArray
			}
		}
		if isArray || len(values) > 1 {
			items := make([]any, len(values))
			for i, s := range values {
				items[i] = s
			}
			out[key] = items
			continue
		}
		out[key] = values[0]
	}
	return out
}

type errorSource int

const (
	bodySource errorSource = iota
	querySource
)

// writeValidationErrors writes one JSON:API error per failure. Body errors
// point into the document; query errors name the parameter.
func writeValidationErrors(w http.ResponseWriter, name string, res schema.Result, source errorSource) {
	jsonapi.WriteErrorWithMeta(w,
		jsonapi.Meta{"schema": name, "error_count": len(res.Errors)},
		validationErrors(res, source)...)
}

func validationErrors(res schema.Result, source errorSource) []jsonapi.Error {
	errs := make([]jsonapi.Error, 0, len(res.Errors))
	for _, d := range res.Errors {
		b := jsonapi.NewError(http.StatusBadRequest, "validation_failed", "Validation Failed").
			Detail(d.Message).
			Meta("keyword", d.Keyword()).
			Meta("keyword_location", d.KeywordLocation)
		switch source {
		case querySource:
			if segs, err := schema.ParsePointer(d.InstanceLocation); err == nil && len(segs) > 0 {
				b.Parameter(segs[0])
			}
		default:
			b.Pointer(d.InstanceLocation)
		}
		errs = append(errs, b.Build())
	}
	return errs
}

func isJSONMediaType(mt string) bool {
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
