package jsonapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteDocument encodes doc with the JSON:API content type.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteCollection writes resources as primary data. A nil slice is written
// as an empty array.
func WriteCollection(w http.ResponseWriter, status int, resources []Resource, meta Meta) {
	if resources == nil {
		resources = []Resource{}
	}
	WriteDocument(w, status, Document{Data: resources, Meta: meta})
}

// WriteError writes errs with the status of the first one, or 500 when
// there is none.
func WriteError(w http.ResponseWriter, errs ...Error) {
	WriteErrorWithMeta(w, nil, errs...)
}

// WriteErrorWithMeta is WriteError with top-level meta.
func WriteErrorWithMeta(w http.ResponseWriter, meta Meta, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{ErrInternal("")}
	}
	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteDocument(w, status, Document{Errors: errs, Meta: meta})
}

func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, ErrBadRequest(detail))
}

func WriteNotFound(w http.ResponseWriter, resourceType string) {
	WriteError(w, ErrNotFound(resourceType))
}

// WriteMethodNotAllowed also sets the Allow header when allowed is known.
func WriteMethodNotAllowed(w http.ResponseWriter, method string, allowed []string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	WriteError(w, ErrMethodNotAllowed(method, allowed))
}

func WriteErrorFromGo(w http.ResponseWriter, err error) {
	WriteError(w, ErrFromError(err))
}
