package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bakery/internal/browser"
	"github.com/hitoshi/bakery/internal/guard"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/navigation"
	"github.com/hitoshi/bakery/internal/session"
)

// PageGuard はページ遷移の可否を判定する。guard.Evaluatorが満たす。
type PageGuard interface {
	Evaluate(ctx context.Context, store guard.SessionSource, req guard.Request) (guard.Decision, error)
}

// NavigationObserver は確定した遷移を通知される。navigation.Observerが満たす。
type NavigationObserver interface {
	Completed(ctx context.Context, store *session.Store, rec *navigation.Record, path string) navigation.Verdict
}

// NewPageGuardMiddleware はページルートのガードミドルウェアを返す。
// NewClientMiddlewareの後に配置すること。
//
// 拒否された遷移は元のページを描画せず302でリダイレクトする。
// 評価中に同じクライアントで新しい遷移が始まった場合は409を返し、リダイレクトしない。
// 2xxで描画できた遷移のみobserverに通知する。描画結果はobserverの判定まで保留し、
// 強制ログアウトになった場合はセッションCookieを削除してから送信する。
func NewPageGuardMiddleware(evaluator PageGuard, observer NavigationObserver, cookie CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := browser.FromContext(r.Context())
			if !ok {
				slog.Error("page guard used without client middleware", slog.String("path", r.URL.Path))
				WriteInternalServerError(w)
				return
			}

			attempt := c.Attempts.Begin()
			d, err := evaluator.Evaluate(r.Context(), c.Store, guard.Request{
				Target:  r.URL.RequestURI(),
				Attempt: attempt,
				Tracker: c.Attempts,
			})
			switch {
			case errors.Is(err, guard.ErrSuperseded):
				WriteErrorResponse(w, http.StatusConflict, newSupersededError())
				return
			case err != nil:
				// リクエストがキャンセルされた。応答先がないため何も書き込まない
				slog.Debug("page request cancelled during guard evaluation",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				return
			}

			// 戻る操作でもサーバーに問い合わせさせる
			w.Header().Set("Cache-Control", "no-store")

			if !d.Allowed() {
				http.Redirect(w, r, d.Location(), http.StatusFound)
				return
			}

			buf := newBufferedResponse(w)
			next.ServeHTTP(buf, r)

			if observer != nil && buf.statusCode >= 200 && buf.statusCode < 300 {
				if observer.Completed(r.Context(), c.Store, c.Record, r.URL.Path) == navigation.VerdictForcedLogout {
					ClearSessionCookie(w, cookie)
				}
			}
			buf.flush()
		})
	}
}

// bufferedResponse はヘッダー以外の書き込みをflushまで保留する。
type bufferedResponse struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func newBufferedResponse(w http.ResponseWriter) *bufferedResponse {
	return &bufferedResponse{ResponseWriter: w, statusCode: http.StatusOK}
}

func (b *bufferedResponse) WriteHeader(code int) {
	b.statusCode = code
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	return b.body.Write(p)
}

func (b *bufferedResponse) flush() {
	b.ResponseWriter.WriteHeader(b.statusCode)
	if _, err := b.body.WriteTo(b.ResponseWriter); err != nil {
		slog.Debug("failed to write page response", slog.String("error", err.Error()))
	}
}

func newSupersededError() *model.APIError {
	return &model.APIError{
		Code:     "NAVIGATION_SUPERSEDED",
		Message:  "La navegación fue reemplazada por otra más reciente.",
		Category: "system",
		Action:   "No se requiere ninguna acción.",
	}
}
