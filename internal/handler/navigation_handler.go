package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/bakery/internal/browser"
	"github.com/hitoshi/bakery/internal/guard"
	"github.com/hitoshi/bakery/internal/middleware"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/navigation"
)

// NavigationHandler はSPA内の遷移をガード評価・ナビゲーション監視に通すHTTPハンドラー。
// ブラウザ内の遷移はページの再読み込みを伴わないため、SPAのルーターが遷移の確定前後に呼び出す。
type NavigationHandler struct {
	evaluator middleware.PageGuard
	observer  middleware.NavigationObserver
	policies  guard.PolicySource
	cookie    middleware.CookieConfig
}

// NewNavigationHandler はNavigationHandlerを生成する。
func NewNavigationHandler(
	evaluator middleware.PageGuard,
	observer middleware.NavigationObserver,
	policies guard.PolicySource,
	cookie middleware.CookieConfig,
) *NavigationHandler {
	return &NavigationHandler{
		evaluator: evaluator,
		observer:  observer,
		policies:  policies,
		cookie:    cookie,
	}
}

type navigationRequest struct {
	Path string `json:"path"`
}

type checkResponse struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
}

type completeResponse struct {
	ForcedLogout bool   `json:"forced_logout"`
	Redirect     string `json:"redirect,omitempty"`
}

// Check は遷移の可否を判定する。
// POST /api/navigation/check
func (h *NavigationHandler) Check(w http.ResponseWriter, r *http.Request) {
	c, path, ok := h.parse(w, r)
	if !ok {
		return
	}

	attempt := c.Attempts.Begin()
	d, err := h.evaluator.Evaluate(r.Context(), c.Store, guard.Request{
		Target:  path,
		Attempt: attempt,
		Tracker: c.Attempts,
	})
	switch {
	case errors.Is(err, guard.ErrSuperseded):
		middleware.WriteErrorResponse(w, http.StatusConflict, &model.APIError{
			Code:     "NAVIGATION_SUPERSEDED",
			Message:  "La navegación fue reemplazada por otra más reciente.",
			Category: "system",
			Action:   "No se requiere ninguna acción.",
		})
		return
	case err != nil:
		slog.Debug("navigation check cancelled", slog.String("path", path))
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		Allow:    d.Allowed(),
		Redirect: d.Location(),
	})
}

// Complete は遷移の確定を通知する。
// ロールをまたぐ戻る操作を検知した場合はセッションCookieも削除し、ログインページへの遷移を指示する。
// POST /api/navigation/complete
func (h *NavigationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	c, path, ok := h.parse(w, r)
	if !ok {
		return
	}

	resp := completeResponse{}
	if h.observer.Completed(r.Context(), c.Store, c.Record, path) == navigation.VerdictForcedLogout {
		middleware.ClearSessionCookie(w, h.cookie)
		resp.ForcedLogout = true
		resp.Redirect = h.policies.Current().Homes.Login
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *NavigationHandler) parse(w http.ResponseWriter, r *http.Request) (*browser.Client, string, bool) {
	c, ok := browser.FromContext(r.Context())
	if !ok {
		slog.Error("navigation handler used without client middleware")
		middleware.WriteInternalServerError(w)
		return nil, "", false
	}

	var req navigationRequest
	if !decodeJSON(w, r, &req) {
		return nil, "", false
	}
	if !strings.HasPrefix(req.Path, "/") || strings.HasPrefix(req.Path, "//") {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(map[string]string{
			"path": "invalid",
		}))
		return nil, "", false
	}
	return c, req.Path, true
}
