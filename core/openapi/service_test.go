package openapi

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/core/schema"
)

type fakeSource struct {
	resolver *schema.Resolver
	revision string
	calls    int
}

func (f *fakeSource) Resolver() *schema.Resolver {
	f.calls++
	return f.resolver
}

func (f *fakeSource) Revision() string { return f.revision }

func TestService_CachesPerRevision(t *testing.T) {
	src := &fakeSource{resolver: testResolver(t), revision: "r1"}
	svc := NewService(ServiceConfig{
		Source: src,
		Routes: []Route{{Method: "POST", Path: "/users", Body: "user"}},
		Logger: zerolog.Nop(),
	})

	first, err := svc.Spec("http://localhost:8080")
	if err != nil {
		t.Fatalf("Spec error: %v", err)
	}
	if _, err := svc.Spec("http://other:9090"); err != nil {
		t.Fatalf("Spec error: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("generated %d times for one revision, want 1", src.calls)
	}

	src.revision = "r2"
	if _, err := svc.Spec(""); err != nil {
		t.Fatalf("Spec error: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("new revision should regenerate, generated %d times", src.calls)
	}

	svc.InvalidateCache()
	if _, err := svc.Spec(""); err != nil {
		t.Fatalf("Spec error: %v", err)
	}
	if src.calls != 3 {
		t.Errorf("invalidated cache should regenerate, generated %d times", src.calls)
	}

	if first.Info.Title != "schemagate" {
		t.Errorf("default title = %q", first.Info.Title)
	}
}

func TestService_Servers(t *testing.T) {
	svc := NewService(ServiceConfig{
		Source: &fakeSource{resolver: testResolver(t), revision: "r1"},
		Logger: zerolog.Nop(),
	})

	a, err := svc.Spec("http://a.example")
	if err != nil {
		t.Fatalf("Spec error: %v", err)
	}
	b, err := svc.Spec("")
	if err != nil {
		t.Fatalf("Spec error: %v", err)
	}

	if len(a.Servers) != 1 || a.Servers[0].URL != "http://a.example" {
		t.Errorf("servers = %v, want http://a.example", a.Servers)
	}
	if len(b.Servers) != 0 {
		t.Errorf("servers = %v, want none", b.Servers)
	}
}

func TestService_GenerationError(t *testing.T) {
	svc := NewService(ServiceConfig{
		Source: &fakeSource{resolver: testResolver(t), revision: "r1"},
		Routes: []Route{{Method: "POST", Path: "/x", Body: "missing"}},
		Logger: zerolog.Nop(),
	})
	if _, err := svc.Spec(""); err == nil {
		t.Error("expected error for unknown body schema")
	}
}

func TestOperationIDs(t *testing.T) {
	ids := NewOperationIDs()

	tests := []struct {
		method, path, want string
	}{
		{"GET", "/", "get_root"},
		{"GET", "/users/{id}", "get_users_id"},
		{"post", "/users", "post_users"},
		{"GET", "/users/{id}", "get_users_id"},
		{"GET", "/users/{ID}", "get_users_id_2"},
	}
	for _, tt := range tests {
		if got := ids.Get(tt.method, tt.path); got != tt.want {
			t.Errorf("Get(%s, %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
	if ids.Len() != 4 {
		t.Errorf("Len() = %d, want 4", ids.Len())
	}

	ids.Reset()
	if ids.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", ids.Len())
	}
	if got := ids.Get("GET", "/users/{ID}"); got != "get_users_id" {
		t.Errorf("after Reset got %q, want get_users_id", got)
	}
}
