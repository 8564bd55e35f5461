package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hitoshi/startupnetwork/internal/model"
)

func TestCORSMiddleware(t *testing.T) {
	handler := NewCORSMiddleware("https://app.example.com")(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/startups", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
}

func TestCORSMiddleware_DisabledWithoutOrigin(t *testing.T) {
	handler := NewCORSMiddleware("")(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/startups", nil))

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	NewSecurityHeadersMiddleware()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 || w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id = %q, header = %q", seen, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "client-id" {
		t.Errorf("id = %q, want client-id", seen)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var body ErrorResponseBody
	json.NewDecoder(w.Body).Decode(&body)
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}

type statusCounter struct {
	mu    sync.Mutex
	codes []int
}

func (s *statusCounter) RecordHTTPStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
}

func TestMetricsMiddleware(t *testing.T) {
	counter := &statusCounter{}
	handler := NewMetricsMiddleware(counter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	if len(counter.codes) != 2 || counter.codes[0] != 200 || counter.codes[1] != 404 {
		t.Errorf("codes = %v, want [200 404]", counter.codes)
	}
}

func TestWriteValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteValidationError(w, model.NewValidationError("first", "second"))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeValidation || body.Message != "first" || len(body.Errors) != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteErrorResponse_OmitsEmptyErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusNotFound, model.NewStartupNotFoundError("x"))

	var raw map[string]any
	json.NewDecoder(w.Body).Decode(&raw)
	if _, ok := raw["errors"]; ok {
		t.Errorf("body has errors key: %v", raw)
	}
	for _, key := range []string{"code", "message", "category", "action"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("body missing %s: %v", key, raw)
		}
	}
}
