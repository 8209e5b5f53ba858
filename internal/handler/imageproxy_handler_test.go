package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/miniblog/internal/model"
)

// --- モック定義 ---

// allowAllGuard はテスト用のSSRFガード。httptestサーバーへの接続を許可する。
type allowAllGuard struct {
	validateErr error
}

func (g *allowAllGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (g *allowAllGuard) ValidateURL(rawURL string) error {
	return g.validateErr
}

func testProxyConfig() ImageProxyConfig {
	return ImageProxyConfig{
		Timeout: 5 * time.Second,
		MaxSize: 1024,
	}
}

// --- テスト ---

func TestImageProxy_Success(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer upstream.Close()

	h := NewImageProxyHandler(&allowAllGuard{}, testProxyConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+upstream.URL, nil)
	w := httptest.NewRecorder()
	h.Proxy(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}
	if w.Body.String() != "png-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
	if w.Header().Get("Cache-Control") == "" {
		t.Error("Cache-Control header missing")
	}
}

func TestImageProxy_RejectedURL(t *testing.T) {
	h := NewImageProxyHandler(&allowAllGuard{validateErr: errors.New("blocked")}, testProxyConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url=http://169.254.169.254/", nil)
	w := httptest.NewRecorder()
	h.Proxy(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if code := decodeErrorCode(t, w); code != model.ErrCodeInvalidImageURL {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidImageURL)
	}
}

func TestImageProxy_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	h := NewImageProxyHandler(&allowAllGuard{}, testProxyConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+upstream.URL, nil)
	w := httptest.NewRecorder()
	h.Proxy(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestImageProxy_NonImageContentType(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer upstream.Close()

	h := NewImageProxyHandler(&allowAllGuard{}, testProxyConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+upstream.URL, nil)
	w := httptest.NewRecorder()
	h.Proxy(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestImageProxy_TruncatesOversizedBody(t *testing.T) {
	big := make([]byte, 4096)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(big)
	}))
	defer upstream.Close()

	h := NewImageProxyHandler(&allowAllGuard{}, testProxyConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+upstream.URL, nil)
	w := httptest.NewRecorder()
	h.Proxy(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.Len(); got != 1024 {
		t.Errorf("body size = %d, want 1024 (MaxSize)", got)
	}
}
