package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/miniblog/internal/middleware"
	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/security"
)

// ImageProxyConfig は画像プロキシの設定。
type ImageProxyConfig struct {
	Timeout time.Duration // 上流へのリクエストのタイムアウト
	MaxSize int64         // レスポンスボディの最大バイト数
}

// ImageProxyHandler は外部画像を取得して返すプロキシハンドラー。
// SSRF防止のため、URLの事前検証とDialer側のIP検証を併用する。
type ImageProxyHandler struct {
	guard  security.SSRFGuardService
	client *http.Client
	config ImageProxyConfig
}

// NewImageProxyHandler はImageProxyHandlerを生成する。
func NewImageProxyHandler(guard security.SSRFGuardService, config ImageProxyConfig) *ImageProxyHandler {
	return &ImageProxyHandler{
		guard:  guard,
		client: guard.NewSafeClient(config.Timeout, config.MaxSize),
		config: config,
	}
}

// Proxy は指定URLの画像を取得して返す。
// GET /api/image-proxy?url=xxx
func (h *ImageProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := h.guard.ValidateURL(rawURL); err != nil {
		slog.Warn("image proxy rejected URL",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError())
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		slog.Warn("image proxy fetch failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to fetch image", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, "failed to fetch image", http.StatusBadGateway)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		http.Error(w, "not an image", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")

	// サイズ上限を超えた分は切り捨てる
	if _, err := io.Copy(w, io.LimitReader(resp.Body, h.config.MaxSize)); err != nil {
		slog.Warn("image proxy copy failed", slog.String("error", err.Error()))
	}
}
