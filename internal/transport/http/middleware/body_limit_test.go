package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBodyLimitUsesUploadLimitForMultipart(t *testing.T) {
	var readErr error
	handler := BodyLimit(8, 64)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if readErr == nil {
		t.Fatal("expected json body over the limit to fail")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if readErr != nil {
		t.Fatalf("expected multipart body under upload limit to pass, got %v", readErr)
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(true, "/files/evidence")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ipps", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected nosniff header")
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS in production")
	}
	if rec.Header().Get("Cache-Control") != "no-store" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("unexpected api headers: %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/evidence/2025/scan.pdf", nil))
	if rec.Header().Get("X-Frame-Options") != "SAMEORIGIN" {
		t.Fatalf("expected evidence preview to allow same-origin framing, got %q", rec.Header().Get("X-Frame-Options"))
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "img-src 'self'") {
		t.Fatalf("unexpected preview policy %q", rec.Header().Get("Content-Security-Policy"))
	}
}
