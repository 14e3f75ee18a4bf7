package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker は依存先の疎通確認。*sql.DBと*redis.Clientのアダプタが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// HealthCheckerFunc は関数をHealthCheckerとして扱う。
type HealthCheckerFunc func(ctx context.Context) error

// PingContext はfを呼び出す。
func (f HealthCheckerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

// NewHealthHandler はヘルスチェックのハンドラーを返す。
// すべての依存先に疎通できれば200、いずれかが失敗すれば503を返す。
// GET /health
func NewHealthHandler(checkers map[string]HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(checkers))
		for name, checker := range checkers {
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed",
					slog.String("dependency", name),
					slog.String("error", err.Error()),
				)
				checks[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]any{
			"status": overall,
			"checks": checks,
		})
	})
}
