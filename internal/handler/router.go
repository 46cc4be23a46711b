package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/blocklog/internal/metrics"
	"github.com/hitoshi/blocklog/internal/middleware"
)

// HealthChecker はヘルスチェックでDB疎通を確認するためのインターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector

	// 運用エンドポイント
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// ドメインサービス
	AuthService      AuthServiceInterface
	BlockService     BlockServiceInterface
	AnalyticsService AnalyticsServiceInterface
	TagService       TagServiceInterface
	AIService        AIServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → Auth → RateLimit(General)
//
// /health /metrics /auth/register /auth/login は認証チェーンの外に配置する。
// AIルートには汎用レート制限に加えてAI専用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService)
	blockHandler := NewBlockHandler(deps.BlockService)
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsService)
	tagHandler := NewTagHandler(deps.TagService)
	aiHandler := NewAIHandler(deps.AIService, deps.BlockService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.SetupMetricsRoute(deps.Gatherer))
	}

	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// アカウント管理
		r.Route("/auth", func(r chi.Router) {
			r.Get("/profile", authHandler.Profile)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Post("/logout", authHandler.Logout)
		})

		// ブロッカー管理
		r.Route("/api/blocks", func(r chi.Router) {
			r.Post("/", blockHandler.CreateBlock)
			r.Get("/", blockHandler.ListBlocks)
			r.Get("/ongoing", blockHandler.ListOngoingBlocks)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", blockHandler.GetBlock)
				r.Put("/", blockHandler.UpdateBlock)
				r.Delete("/", blockHandler.DeleteBlock)
				r.Patch("/resolve", blockHandler.ResolveBlock)
			})
		})

		// 分析
		r.Route("/api/analytics", func(r chi.Router) {
			r.Get("/dashboard", analyticsHandler.Dashboard)
			r.Get("/monthly", analyticsHandler.Monthly)
			r.Get("/daily", analyticsHandler.Daily)
			r.Get("/calendar", analyticsHandler.Calendar)
			r.Get("/export", analyticsHandler.Export)
		})

		// タグ管理
		r.Route("/api/tags", func(r chi.Router) {
			r.Post("/", tagHandler.CreateTag)
			r.Get("/", tagHandler.ListTags)
			r.Get("/stats", tagHandler.TagStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", tagHandler.GetTag)
				r.Put("/", tagHandler.UpdateTag)
				r.Delete("/", tagHandler.DeleteTag)
			})
		})

		// AI分析（AI専用レート制限を追加）
		r.Route("/api/ai", func(r chi.Router) {
			r.Get("/status", aiHandler.Status)
			r.With(deps.RateLimiter.AIMiddleware()).Post("/analyze", aiHandler.Analyze)
			r.With(deps.RateLimiter.AIMiddleware()).Post("/similar", aiHandler.Similar)
			r.With(deps.RateLimiter.AIMiddleware()).Post("/resolution", aiHandler.Resolution)
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
