package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/artpar/schemagate/core/openapi"
	"github.com/artpar/schemagate/pkg/jsonapi"
)

// DocsHandler serves the generated OpenAPI document and the Swagger UI.
type DocsHandler struct {
	service  *openapi.Service
	instance string
	logger   zerolog.Logger
}

// swagDoc adapts the OpenAPI service to swag's document registry so the
// Swagger UI reads the live document instead of a generated file.
type swagDoc struct {
	service *openapi.Service
	logger  zerolog.Logger
}

func (d swagDoc) ReadDoc() string {
	spec, err := d.service.Spec("")
	if err != nil {
		d.logger.Error().Err(err).Msg("openapi generation failed")
		return "{}"
	}
	data, err := spec.ToJSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}

// NewDocsHandler registers service with swag under a unique instance name.
func NewDocsHandler(service *openapi.Service, logger zerolog.Logger) *DocsHandler {
	// swag panics on duplicate names and routers are built more than once in tests.
	instance := "schemagate-" + uuid.NewString()
	swag.Register(instance, swagDoc{service: service, logger: logger})
	return &DocsHandler{service: service, instance: instance, logger: logger}
}

// OpenAPI serves the document for the current schema revision.
func (h *DocsHandler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	spec, err := h.service.Spec(baseURL(r))
	if err != nil {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusInternalServerError, "openapi_error", "Internal Server Error").
			Detail(err.Error()).
			Build())
		return
	}
	data, err := spec.ToJSON()
	if err != nil {
		jsonapi.WriteErrorFromGo(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

// SwaggerUI serves the Swagger UI backed by the registered document.
func (h *DocsHandler) SwaggerUI() http.HandlerFunc {
	return httpSwagger.Handler(httpSwagger.InstanceName(h.instance))
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
