package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/bakery/internal/guard"
	"github.com/hitoshi/bakery/internal/middleware"
	"github.com/hitoshi/bakery/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// クライアント識別・ガード評価・ナビゲーション監視
	Clients  middleware.ClientRegistry
	Guard    middleware.PageGuard
	Observer middleware.NavigationObserver
	Policies guard.PolicySource

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 店舗
	CatalogService CatalogServiceInterface
	MaxUploadSize  int64
	CartService    CartServiceInterface
	OrderService   OrderServiceInterface
	UserService    UserServiceInterface
	Page           PageConfig

	// 運用
	HealthCheckers map[string]HealthChecker
	Metrics        http.Handler
	UploadDir      string
	AssetsDir      string
}

// NewRouter はページルートと全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Logging → SecurityHeaders → CORS → Client → CSRF
//
// ページルートはさらにPageGuardを通し、APIはSession → RateLimit(General) → RequireRoleを通す。
// /health と /metrics はクライアント識別の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	navHandler := NewNavigationHandler(deps.Guard, deps.Observer, deps.Policies, deps.AuthConfig.Cookie)
	pageHandler := NewPageHandler(deps.Page, deps.Policies)
	catalogHandler := NewCatalogHandler(deps.CatalogService, deps.MaxUploadSize)
	cartHandler := NewCartHandler(deps.CartService)
	orderHandler := NewOrderHandler(deps.OrderService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig.Cookie)

	// --- 運用エンドポイント ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthCheckers))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// --- 静的ファイル ---
	if deps.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir))))
	}
	if deps.AssetsDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(deps.AssetsDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewClientMiddleware(deps.Clients, deps.AuthConfig.Cookie))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 認証ルート
		r.Route("/auth", func(r chi.Router) {
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
			r.Post("/password-strength", authHandler.PasswordStrength)
		})

		r.Route("/api", func(r chi.Router) {
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

			// SPA内遷移のガード評価・ナビゲーション監視
			r.Post("/navigation/check", navHandler.Check)
			r.Post("/navigation/complete", navHandler.Complete)

			// --- 認証が必要なルート ---
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
				r.Use(deps.RateLimiter.GeneralMiddleware())

				r.Get("/catalog/products", catalogHandler.ListProducts)
				r.Get("/catalog/categories", catalogHandler.Categories)

				r.Get("/users/me", userHandler.Me)
				r.Delete("/users/me", userHandler.Withdraw)

				// 利用者
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(model.RoleUser))

					r.Get("/cart", cartHandler.GetCart)
					r.Delete("/cart", cartHandler.ClearCart)
					r.Post("/cart/items", cartHandler.AddItem)
					r.Put("/cart/items/{id}", cartHandler.UpdateItem)
					r.Delete("/cart/items/{id}", cartHandler.RemoveItem)

					r.Get("/orders", orderHandler.ListMyOrders)
					r.Post("/orders", orderHandler.CreateOrder)
				})

				// 管理者
				r.Route("/admin", func(r chi.Router) {
					r.Use(middleware.RequireRole(model.RoleAdmin))

					r.Get("/products", catalogHandler.AdminListProducts)
					r.Post("/products", catalogHandler.CreateProduct)
					r.Patch("/products/{id}", catalogHandler.UpdateProduct)
					r.Delete("/products/{id}", catalogHandler.DeleteProduct)
					r.Post("/products/images", catalogHandler.UploadImage)
					r.Post("/products/images/import", catalogHandler.ImportImage)

					r.Get("/orders", orderHandler.AdminListOrders)
					r.Put("/orders/{id}/status", orderHandler.UpdateStatus)
				})
			})
		})

		// --- ページルート ---
		r.Get("/", pageHandler.RedirectLogin)
		r.Get("/admin", pageHandler.RedirectAdminHome)
		r.With(middleware.NewPageGuardMiddleware(deps.Guard, deps.Observer, deps.AuthConfig.Cookie)).Get("/*", pageHandler.Shell)
	})

	return r
}
