package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cilantro-web/cilantro/pkg/middleware"
)

func corsHandler(cfg *middleware.CORSConfig) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return middleware.CORS(cfg)(next)
}

func TestCORS_DisabledPassesThrough(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: false, Origins: []string{"http://example.com"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()

	corsHandler(cfg).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCORS_AllowedOriginEchoed(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"http://example.com"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()

	corsHandler(cfg).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://example.com")
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want Origin", got)
	}
}

func TestCORS_DisallowedOriginIgnored(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"http://example.com"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()

	corsHandler(cfg).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 passthrough", w.Code)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://example.com"},
		AllowCredentials: true,
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()

	corsHandler(cfg).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("Access-Control-Max-Age = %q, want 3600", got)
	}
}

func TestCORS_WildcardOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"*"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	w := httptest.NewRecorder()

	corsHandler(cfg).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestCORSConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("TEST_CORS_MAX_AGE", "60")

	cfg := &middleware.CORSConfig{}
	env := &middleware.CORSEnv{
		Enabled: "TEST_CORS_ENABLED",
		Origins: "TEST_CORS_ORIGINS",
		MaxAge:  "TEST_CORS_MAX_AGE",
	}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if !cfg.Enabled {
		t.Error("Enabled should be true")
	}
	if len(cfg.Origins) != 2 || cfg.Origins[0] != "http://a.example" || cfg.Origins[1] != "http://b.example" {
		t.Errorf("Origins = %v", cfg.Origins)
	}
	if cfg.MaxAge != 60 {
		t.Errorf("MaxAge = %d, want 60", cfg.MaxAge)
	}
}
