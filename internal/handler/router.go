package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/miniblog/internal/metrics"
	"github.com/hitoshi/miniblog/internal/middleware"
	"github.com/hitoshi/miniblog/internal/rss"
	"github.com/hitoshi/miniblog/internal/security"
)

// Pinger はヘルスチェックに必要なDB接続のインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// メトリクス
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 投稿
	PostService PostServiceInterface
	UserFinder  UserFinder

	// SSE配信
	StreamHandler http.Handler

	// 画像プロキシ
	SSRFGuard        security.SSRFGuardService
	ImageProxyConfig ImageProxyConfig

	// RSS
	RSSGenerator *rss.Generator

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → [CSRF] → [Session → RateLimit]
//
// /health、/metrics、/feed.xml はCSRF検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Collector)
	postHandler := NewPostHandler(deps.PostService, deps.UserFinder, deps.Collector)
	rssHandler := NewRSSHandler(deps.PostService, deps.RSSGenerator)
	imageProxyHandler := NewImageProxyHandler(deps.SSRFGuard, deps.ImageProxyConfig)

	// --- 運用エンドポイント ---
	r.Get("/health", newHealthHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	r.Get("/feed.xml", rssHandler.Feed)

	// --- CSRF検証下のルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// 認証ルート
		r.Route("/auth", func(r chi.Router) {
			// 登録・ログインは匿名ユーザー専用
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAnonOnlyMiddleware(deps.SessionFinder))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})

			r.Get("/google/login", authHandler.GoogleLogin)
			r.Get("/google/callback", authHandler.GoogleCallback)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// 公開ルート（閲覧は未認証でも可能）
		r.Get("/api/posts", postHandler.ListPosts)
		r.Get("/api/posts/stream", deps.StreamHandler.ServeHTTP)
		r.Get("/api/posts/{id}", postHandler.GetPost)
		r.Get("/api/image-proxy", imageProxyHandler.Proxy)

		// 認証が必要なルート
		// ミドルウェアスタック: Session → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			// POST /api/posts - 投稿作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.PostCreateMiddleware()).Post("/api/posts", postHandler.CreatePost)
			r.Delete("/api/posts/{id}", postHandler.DeletePost)
			r.Get("/api/dashboard/posts", postHandler.ListDashboardPosts)
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
