package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/merge"
	"github.com/artpar/schemagate/core/schema"
	"github.com/artpar/schemagate/pkg/jsonapi"
)

// SchemaHandler serves the schema API: listing, inspection, validation,
// coercion, templates and allOf merging.
type SchemaHandler struct {
	store     SchemaStore
	validator *Validator
	settings  func() config.ValidationConfig
	logger    zerolog.Logger
}

// NewSchemaHandler creates the schema API handler.
func NewSchemaHandler(store SchemaStore, validator *Validator, settings func() config.ValidationConfig, logger zerolog.Logger) *SchemaHandler {
	if settings == nil {
		settings = func() config.ValidationConfig { return config.ValidationConfig{MaxBodyBytes: defaultMaxBody} }
	}
	return &SchemaHandler{
		store:     store,
		validator: validator,
		settings:  settings,
		logger:    logger,
	}
}

// CheckResponse is the body returned by the validate and coerce endpoints.
type CheckResponse struct {
	Valid  bool                 `json:"valid"`
	Errors []schema.ErrorDetail `json:"errors"`
	Value  any                  `json:"value,omitempty"`
}

// Routes mounts the schema API on r.
func (h *SchemaHandler) Routes(r chi.Router) {
	r.Get("/schemas", h.List)
	r.Get("/schemas/{name}", h.Get)
	r.Post("/schemas/{name}/validate", h.Validate)
	r.Post("/schemas/{name}/coerce", h.Coerce)
	r.Get("/schemas/{name}/template", h.Template)
	r.Post("/merge", h.Merge)
}

// List returns every registered schema as a JSON:API collection.
func (h *SchemaHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	resources := make([]jsonapi.Resource, 0, len(entries))
	for _, e := range entries {
		resources = append(resources, jsonapi.NewResource("schemas", e.Name).
			Attr("kind", e.Node.Kind().String()).
			Attr("source", e.Source).
			Attr("loaded_at", e.LoadedAt.UTC().Format(time.RFC3339)).
			Link("/schemas/"+e.Name).
			Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, jsonapi.Meta{
		"total":    len(resources),
		"revision": h.store.Revision(),
	})
}

// Get returns a schema as a JSON Schema document. The registry revision
// serves as the ETag.
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok := h.store.Get(name)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("schema", name))
		return
	}

	etag := strconv.Quote(entry.Revision)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/schema+json")
	w.Header().Set("ETag", etag)
	json.NewEncoder(w).Encode(entry.Node.ToJSON())
}

// Validate checks the request body against the schema. Invalid data is a
// successful call: the response reports valid=false with the errors.
func (h *SchemaHandler) Validate(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, false)
}

// Coerce converts the request body toward the schema and validates the
// result.
func (h *SchemaHandler) Coerce(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, true)
}

func (h *SchemaHandler) check(w http.ResponseWriter, r *http.Request, coerce bool) {
	name := chi.URLParam(r, "name")
	if _, ok := h.store.Get(name); !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("schema", name))
		return
	}

	value, ok := h.readJSON(w, r)
	if !ok {
		return
	}

	value, res, err := h.validator.Check(name, value, coerce)
	if err != nil {
		h.validator.writeSchemaError(w, r, name, err)
		return
	}

	resp := CheckResponse{Valid: res.Valid, Errors: res.Errors}
	if coerce {
		resp.Value = value
	}
	writeJSON(w, http.StatusOK, resp)
}

// Template returns a placeholder value for the schema. ?optional=true
// includes optional properties.
func (h *SchemaHandler) Template(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok := h.store.Get(name)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("schema", name))
		return
	}

	opts := []schema.CallOption{schema.WithResolver(h.store.Resolver())}
	if optional, _ := strconv.ParseBool(r.URL.Query().Get("optional")); optional {
		opts = append(opts, schema.WithOptionalFields())
	}
	writeJSON(w, http.StatusOK, entry.Node.Template(opts...))
}

// Merge flattens allOf in the posted JSON Schema document. ?shallow=true
// merges only the root allOf.
func (h *SchemaHandler) Merge(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readJSON(w, r)
	if !ok {
		return
	}

	var opts []merge.Option
	if shallow, _ := strconv.ParseBool(r.URL.Query().Get("shallow")); shallow {
		opts = append(opts, merge.Shallow())
	}

	merged, err := merge.AllOf(doc, opts...)
	if err != nil {
		var incompatible *merge.IncompatibleError
		if errors.As(err, &incompatible) {
			jsonapi.WriteError(w, jsonapi.NewError(http.StatusUnprocessableEntity, "incompatible_schemas", "Unprocessable Entity").
				Detail(err.Error()).
				Meta("keyword", incompatible.Keyword).
				Build())
			return
		}
		jsonapi.WriteErrorFromGo(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (h *SchemaHandler) readJSON(w http.ResponseWriter, r *http.Request) (any, bool) {
	limit := h.settings().MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonapi.WriteError(w, jsonapi.ErrPayloadTooLarge(limit))
			return nil, false
		}
		jsonapi.WriteBadRequest(w, "Failed to read request body")
		return nil, false
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, "invalid_json", "Bad Request").
			Detailf("Request body is not valid JSON: %v", err).
			Build())
		return nil, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
