package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/miniblog/internal/metrics"
	"github.com/hitoshi/miniblog/internal/model"
)

func TestCORSMiddleware_SetsHeadersAndHandlesPreflight(t *testing.T) {
	handler := NewCORSMiddleware("https://blog.example.com")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://blog.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-CSRF-Token") {
		t.Errorf("Allow-Headers = %q, missing X-CSRF-Token", got)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := NewSecurityHeadersMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRecoveryMiddleware_RecoversPanic(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInternal {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
}

func TestLoggingMiddleware_LogsRequestAndRecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	handler := NewLoggingMiddleware(logger, collector)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["status"] != float64(404) {
		t.Errorf("status = %v, want 404", entry["status"])
	}
	if entry["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want user-1", entry["user_id"])
	}
	// 4xxはWARNで記録される
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
}

func TestWriteServiceError_APIErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err        *model.APIError
		wantStatus int
	}{
		{model.NewWeakPasswordError(), http.StatusBadRequest},
		{model.NewEmptyFieldsError(), http.StatusBadRequest},
		{model.NewInvalidImageURLError(), http.StatusBadRequest},
		{model.NewInvalidQueryError(), http.StatusBadRequest},
		{model.NewUserNotFoundError(), http.StatusUnauthorized},
		{model.NewWrongPasswordError(), http.StatusUnauthorized},
		{model.NewOAuthFailedError(), http.StatusUnauthorized},
		{model.NewUnauthorizedError(), http.StatusUnauthorized},
		{model.NewPostForbiddenError(), http.StatusForbidden},
		{model.NewPostNotFoundError("x"), http.StatusNotFound},
		{model.NewEmailTakenError(), http.StatusConflict},
		{model.NewInternalError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteServiceError(w, tt.err)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := decodeErrorBody(t, w); body.Code != tt.err.Code {
				t.Errorf("body code = %q, want %q", body.Code, tt.err.Code)
			}
		})
	}
}

func TestWriteServiceError_UnknownErrorFallsBackToInternal(t *testing.T) {
	w := httptest.NewRecorder()
	WriteServiceError(w, http.ErrBodyNotAllowed)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInternal {
		t.Errorf("body code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
	// 生のエラー詳細はレスポンスに漏れない
	if strings.Contains(body.Message, "body") {
		t.Errorf("raw error leaked into response: %q", body.Message)
	}
}
