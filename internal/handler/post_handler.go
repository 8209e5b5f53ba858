package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/miniblog/internal/metrics"
	"github.com/hitoshi/miniblog/internal/middleware"
	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	Create(ctx context.Context, owner *model.User, input post.CreateInput) (*model.Post, error)
	List(ctx context.Context, q model.PostQuery) ([]*model.Post, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	Delete(ctx context.Context, id, requesterID string) error
}

// UserFinder は認証済みユーザーの取得に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// PostHandler は投稿管理のHTTPハンドラー。
type PostHandler struct {
	service    PostServiceInterface
	userFinder UserFinder
	collector  metrics.MetricsCollector
}

// NewPostHandler はPostHandlerを生成する。collectorはnil可。
func NewPostHandler(service PostServiceInterface, userFinder UserFinder, collector metrics.MetricsCollector) *PostHandler {
	return &PostHandler{
		service:    service,
		userFinder: userFinder,
		collector:  collector,
	}
}

// --- リクエスト・レスポンス型 ---

// createPostRequest は投稿作成リクエストのボディ。
// tagsはカンマ区切りの生文字列で受け取る。
type createPostRequest struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	Body     string `json:"body"`
	Tags     string `json:"tags"`
}

// postResponse は投稿のレスポンス。
type postResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"imageUrl"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	OwnerID   string    `json:"ownerId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// postListResponse は投稿一覧のレスポンス。
type postListResponse struct {
	Posts []postResponse `json:"posts"`
}

func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Title:     p.Title,
		ImageURL:  p.ImageURL,
		Body:      p.Body,
		Tags:      p.Tags,
		OwnerID:   p.OwnerID,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}

func toPostListResponse(posts []*model.Post) postListResponse {
	resp := postListResponse{Posts: make([]postResponse, 0, len(posts))}
	for _, p := range posts {
		resp.Posts = append(resp.Posts, toPostResponse(p))
	}
	return resp
}

// ListPosts は公開フィードの投稿一覧を取得する。
// GET /api/posts?tag=xxx
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := model.PostQuery{Tag: r.URL.Query().Get("tag")}

	posts, err := h.service.List(r.Context(), q)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostListResponse(posts))
}

// GetPost は単一投稿を取得する。
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), postID)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(p))
}

// ListDashboardPosts はログインユーザー自身の投稿一覧を取得する。
// 所有者フィルタ専用のため、tagパラメータとの併用はINVALID_QUERYになる。
// GET /api/dashboard/posts
func (h *PostHandler) ListDashboardPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if r.URL.Query().Get("tag") != "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidQueryError())
		return
	}

	posts, err := h.service.List(r.Context(), model.PostQuery{OwnerID: userID})
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostListResponse(posts))
}

// CreatePost は投稿を作成する。
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	// 表示名スナップショットのため投稿者を取得する
	user, err := h.userFinder.FindByID(r.Context(), userID)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewEmptyFieldsError())
		return
	}

	p, err := h.service.Create(r.Context(), user, post.CreateInput{
		Title:    req.Title,
		ImageURL: req.ImageURL,
		Body:     req.Body,
		Tags:     req.Tags,
	})
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordPostCreated()
	}
	writeJSON(w, http.StatusCreated, toPostResponse(p))
}

// DeletePost は投稿を削除する。所有者のみ実行できる。
// DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	postID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), postID, userID); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordPostDeleted()
	}
	w.WriteHeader(http.StatusNoContent)
}
