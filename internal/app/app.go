// Package app はコマンドライン起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/bakery/internal/auth"
	"github.com/hitoshi/bakery/internal/browser"
	"github.com/hitoshi/bakery/internal/cart"
	"github.com/hitoshi/bakery/internal/catalog"
	"github.com/hitoshi/bakery/internal/config"
	"github.com/hitoshi/bakery/internal/database"
	"github.com/hitoshi/bakery/internal/guard"
	"github.com/hitoshi/bakery/internal/handler"
	"github.com/hitoshi/bakery/internal/logger"
	"github.com/hitoshi/bakery/internal/metrics"
	"github.com/hitoshi/bakery/internal/middleware"
	"github.com/hitoshi/bakery/internal/navigation"
	"github.com/hitoshi/bakery/internal/order"
	"github.com/hitoshi/bakery/internal/repository"
	"github.com/hitoshi/bakery/internal/security"
	"github.com/hitoshi/bakery/internal/storage"
	"github.com/hitoshi/bakery/internal/user"
	"github.com/hitoshi/bakery/internal/worker/cleanup"
)

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.Execute()
}

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// logLevelが空でなければLOG_LEVELより優先する。
func Init(w io.Writer, logLevel string) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		log.Warn("invalid log level, falling back to info", slog.String("log_level", logLevel))
	}
	log = logger.SetupDefault(w, level)

	return cfg, log, nil
}

// signalContext はSIGINTまたはSIGTERMでキャンセルされるコンテキストを返す。
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// runServe はAPIサーバーモードで起動する。
func runServe(w io.Writer, logLevel string) error {
	cfg, log, err := Init(w, logLevel)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	log.Info("starting application",
		slog.String("command", string(CommandServe)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signalContext()
	defer stop()
	return serve(ctx, cfg, log)
}

// serve は全依存関係をワイヤリングし、ctxがキャンセルされるまでHTTPサーバーを動かす。
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	// 2. Redis接続（カート）
	rdb, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("redis connection established")

	// 3. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	orderRepo := repository.NewPostgresOrderRepo(db)

	// 4. メトリクス
	reg := newMetricsRegistry()
	collector := metrics.NewCollector(reg)

	// 5. セキュリティ・ストレージ
	sanitizer := security.NewTextSanitizer()
	ssrfGuard := security.NewSSRFGuard(security.SSRFGuardConfig{Timeout: cfg.ImageFetchTimeout})
	images, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL, cfg.UploadMaxSize)
	if err != nil {
		return fmt.Errorf("failed to prepare upload dir: %w", err)
	}
	importer := storage.NewImporter(ssrfGuard, images, cfg.UploadMaxSize)

	// 6. ドメインサービスの初期化
	hasher, err := auth.NewArgon2Hasher(auth.DefaultHasherConfig())
	if err != nil {
		return fmt.Errorf("failed to create password hasher: %w", err)
	}
	authService := auth.NewService(accountRepo, profileRepo, sessionRepo, hasher,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	catalogService := catalog.NewService(productRepo, sanitizer, images, importer)
	cartService := cart.NewService(cart.NewStore(rdb, cfg.CartTTL), productRepo)
	orderService := order.NewService(orderRepo, cartService, sanitizer, collector, order.Config{
		WhatsAppNumber: cfg.WhatsAppNumber,
		Location:       loadLocation(cfg.TimeZone, log),
	})
	userService := user.NewService(accountRepo, profileRepo, sessionRepo, cartService)

	// 7. ガードポリシーと監視
	base, err := basePolicy(cfg)
	if err != nil {
		return fmt.Errorf("invalid guard policy: %w", err)
	}
	policy := base
	if cfg.PolicyFile != "" {
		if policy, err = guard.LoadPolicyFile(cfg.PolicyFile, base); err != nil {
			return fmt.Errorf("failed to load policy file: %w", err)
		}
	}
	provider := guard.NewProvider(policy)
	evaluator := guard.NewEvaluator(provider, collector, log)
	observer := navigation.NewObserver(provider, authService, collector, log)
	registry := browser.NewRegistry(authService, log)

	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))
	defer limiter.Stop()

	cookie := middleware.CookieConfig{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain}

	// 8. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		StatusRecorder:    collector,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		CSRFConfig:        middleware.CSRFConfig{CookieSecure: cfg.CookieSecure, CookieDomain: cfg.CookieDomain},

		Clients:  registry,
		Guard:    evaluator,
		Observer: observer,
		Policies: provider,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			Cookie:        cookie,
			SessionMaxAge: cfg.SessionMaxAge,
			Homes:         auth.Homes{User: policy.Homes.User, Admin: policy.Homes.Admin},
			LoginPath:     policy.Homes.Login,
		},

		CatalogService: catalogService,
		MaxUploadSize:  cfg.UploadMaxSize,
		CartService:    cartService,
		OrderService:   orderService,
		UserService:    userService,
		Page:           handler.PageConfig{StoreName: cfg.StoreName, WhatsAppNumber: cfg.WhatsAppNumber},

		HealthCheckers: map[string]handler.HealthChecker{
			"database": db,
			"redis": handler.HealthCheckerFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}),
		},
		Metrics:   metrics.Handler(reg),
		UploadDir: images.Dir(),
		AssetsDir: cfg.AssetsDir,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 9. バックグラウンド処理とHTTPサーバーの起動
	var watcher *guard.PolicyWatcher
	if cfg.PolicyFile != "" {
		if watcher, err = guard.NewPolicyWatcher(cfg.PolicyFile, base, provider, log); err != nil {
			return fmt.Errorf("failed to watch policy file: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		registry.Run(gctx, cfg.ClientSweepInterval, cfg.ClientIdleTTL)
		return nil
	})
	if watcher != nil {
		g.Go(func() error {
			watcher.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		log.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down API server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("API server stopped gracefully")
		return nil
	})

	return g.Wait()
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションを定期的に削除し、ジョブのメトリクスを別ポートで公開する。
func runWorker(w io.Writer, logLevel string) error {
	cfg, log, err := Init(w, logLevel)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	db, err := database.OpenWithPool(cfg.DatabaseURL, database.WorkerPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established (worker)")

	cleanupJob := cleanup.NewCleanupJob(db, log)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metrics.SetupMetricsRoute(newMetricsRegistry()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
		slog.String("metrics_addr", metricsServer.Addr),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cleanupJob.Start(gctx, cfg.SessionCleanupInterval)
		return nil
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(w io.Writer, logLevel string) error {
	cfg, log, err := Init(w, logLevel)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// openRedis はRedisのURLから接続を開き、疎通を確認する。
func openRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// newMetricsRegistry はランタイムとプロセスのコレクターを登録したレジストリを返す。
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// basePolicy は標準ポリシーに環境変数の設定を反映する。
// ポリシーファイルはこの値を上書きする。
func basePolicy(cfg *config.Config) (*guard.Policy, error) {
	p := guard.DefaultPolicy()
	p.WaitCeiling = cfg.RestoreWaitCeiling
	p.AdminOnUserRoute = guard.Outcome(cfg.AdminOnUserRoute)
	p.BackNavigation = guard.BackNavigationCheck(cfg.BackNavigation)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// loadLocation は店舗のタイムゾーンを返す。解決できない場合はUTC-5固定とする。
func loadLocation(name string, log *slog.Logger) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn("unknown store timezone, using UTC-5",
			slog.String("timezone", name),
			slog.String("error", err.Error()),
		)
		return time.FixedZone("PET", -5*60*60)
	}
	return loc
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.Redacted()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
