package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/miniblog/internal/middleware"
	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/rss"
)

// RSSHandler は公開フィードのRSS配信ハンドラー。
type RSSHandler struct {
	service   PostServiceInterface
	generator *rss.Generator
}

// NewRSSHandler はRSSHandlerを生成する。
func NewRSSHandler(service PostServiceInterface, generator *rss.Generator) *RSSHandler {
	return &RSSHandler{
		service:   service,
		generator: generator,
	}
}

// Feed は全公開投稿のRSS 2.0フィードを返す。
// GET /feed.xml
func (h *RSSHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context(), model.PostQuery{})
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	body, err := h.generator.Generate(posts)
	if err != nil {
		slog.Error("failed to generate rss feed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(body)
}
