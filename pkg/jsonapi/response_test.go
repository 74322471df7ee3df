package jsonapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteCollection(t *testing.T) {
	w := httptest.NewRecorder()
	res := NewResource("schemas", "user").Attr("kind", "object").Link("/schemas/user").Build()
	WriteCollection(w, http.StatusOK, []Resource{res}, Meta{"total": 1})

	if w.Header().Get("Content-Type") != ContentType {
		t.Errorf("Content-Type = %v, want %v", w.Header().Get("Content-Type"), ContentType)
	}
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var got struct {
		Data []Resource `json:"data"`
		Meta Meta       `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(got.Data) != 1 || got.Data[0].ID != "user" || got.Data[0].Attributes["kind"] != "object" {
		t.Errorf("Data = %+v", got.Data)
	}
	if got.Data[0].Links == nil || got.Data[0].Links.Self != "/schemas/user" {
		t.Errorf("Links = %+v", got.Data[0].Links)
	}
	if got.Meta["total"] != float64(1) {
		t.Errorf("Meta = %v", got.Meta)
	}
}

func TestWriteCollection_Empty(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCollection(w, http.StatusOK, nil, Meta{"total": 0})

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	data, ok := got["data"].([]any)
	if !ok || len(data) != 0 {
		t.Errorf("data = %v, want empty array", got["data"])
	}
}

func TestWriteError(t *testing.T) {
	t.Run("status from first error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, ErrNotFound("schema"), ErrInternal(""))

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want 404", w.Code)
		}
		var doc Document
		if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if len(doc.Errors) != 2 {
			t.Errorf("len(Errors) = %d, want 2", len(doc.Errors))
		}
	})

	t.Run("no errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want 500", w.Code)
		}
	})

	t.Run("with meta", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorWithMeta(w, Meta{"schema": "user"}, ErrBadRequest("bad"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", w.Code)
		}
		var doc Document
		if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if doc.Meta["schema"] != "user" {
			t.Errorf("Meta = %v", doc.Meta)
		}
	})
}

func TestWriteMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	WriteMethodNotAllowed(w, "PUT", []string{"GET", "POST"})

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "GET, POST" {
		t.Errorf("Allow = %q, want %q", got, "GET, POST")
	}
}
