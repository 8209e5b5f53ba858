package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("scrape status = %d, want 200", w.Code)
	}
	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatalf("failed to read scrape body: %v", err)
	}
	return string(body)
}

func TestCollector_PostCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPostCreated()
	c.RecordPostCreated()
	c.RecordPostDeleted()

	body := scrape(t, reg)
	if !strings.Contains(body, "miniblog_posts_created_total 2") {
		t.Errorf("posts created counter missing or wrong:\n%s", body)
	}
	if !strings.Contains(body, "miniblog_posts_deleted_total 1") {
		t.Errorf("posts deleted counter missing or wrong:\n%s", body)
	}
}

func TestCollector_AuthCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthSuccess("password")
	c.RecordAuthSuccess("google")
	c.RecordAuthFailure("password", "AUTH_WRONG_PASSWORD")

	body := scrape(t, reg)
	if !strings.Contains(body, `miniblog_auth_success_total{method="password"} 1`) {
		t.Errorf("password auth success missing:\n%s", body)
	}
	if !strings.Contains(body, `miniblog_auth_success_total{method="google"} 1`) {
		t.Errorf("google auth success missing:\n%s", body)
	}
	if !strings.Contains(body, `miniblog_auth_fail_total{code="AUTH_WRONG_PASSWORD",method="password"} 1`) {
		t.Errorf("auth failure missing:\n%s", body)
	}
}

func TestCollector_HTTPStatusAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)
	c.RecordRequestLatency(50 * time.Millisecond)

	body := scrape(t, reg)
	if !strings.Contains(body, `miniblog_http_status_total{status_code="200"} 2`) {
		t.Errorf("200 counter missing:\n%s", body)
	}
	if !strings.Contains(body, `miniblog_http_status_total{status_code="404"} 1`) {
		t.Errorf("404 counter missing:\n%s", body)
	}
	if !strings.Contains(body, "miniblog_request_latency_seconds_count 1") {
		t.Errorf("latency histogram missing:\n%s", body)
	}
}

func TestCollector_StreamClientsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetStreamClients(3)
	body := scrape(t, reg)
	if !strings.Contains(body, "miniblog_stream_clients 3") {
		t.Errorf("stream clients gauge missing:\n%s", body)
	}

	c.SetStreamClients(0)
	body = scrape(t, reg)
	if !strings.Contains(body, "miniblog_stream_clients 0") {
		t.Errorf("stream clients gauge not updated:\n%s", body)
	}
}
