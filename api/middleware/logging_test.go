package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatepass/gatepass-backend/pkg/logger"
)

func TestLoggingPassesThroughStatusAndBody(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "middleware-test", Output: io.Discard})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/x", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != `{"ok":false}` {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestLoggingDefaultsImplicitStatusToOK(t *testing.T) {
	var captured *statusRecorder
	handler := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*statusRecorder)
		_, _ = w.Write([]byte("pong"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/ping", nil))

	if captured == nil {
		t.Fatalf("recorder not installed")
	}
	if captured.status != http.StatusOK {
		t.Fatalf("status = %d, want %d", captured.status, http.StatusOK)
	}
}
