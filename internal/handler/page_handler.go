package handler

import (
	"bytes"
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bakery/internal/browser"
	"github.com/hitoshi/bakery/internal/guard"
	"github.com/hitoshi/bakery/internal/middleware"
	"github.com/hitoshi/bakery/internal/route"
)

//go:embed web/index.html
var shellHTML string

var shellTemplate = template.Must(template.New("shell").Parse(shellHTML))

// PageConfig はSPAシェルに埋め込む店舗情報。
type PageConfig struct {
	StoreName      string
	WhatsAppNumber string
}

// PageHandler はガード済みのページルートにSPAシェルを返す。
type PageHandler struct {
	config   PageConfig
	policies guard.PolicySource
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(config PageConfig, policies guard.PolicySource) *PageHandler {
	return &PageHandler{
		config:   config,
		policies: policies,
	}
}

type shellData struct {
	StoreName      string
	WhatsAppNumber string
	Path           string
	Role           string
}

// Shell はSPAシェルを描画する。
// ページガードを通過したリクエストのみが到達する。
// どのルートにも分類されないパスはログインページへリダイレクトする。
func (h *PageHandler) Shell(w http.ResponseWriter, r *http.Request) {
	policy := h.policies.Current()
	if policy.Routes.Classify(r.URL.Path) == route.Unclassified {
		http.Redirect(w, r, policy.Homes.Login, http.StatusFound)
		return
	}

	data := shellData{
		StoreName:      h.config.StoreName,
		WhatsAppNumber: h.config.WhatsAppNumber,
		Path:           r.URL.Path,
	}
	if c, ok := browser.FromContext(r.Context()); ok {
		if snap := c.Store.Snapshot(); snap.LoggedIn() {
			data.Role = string(snap.Profile.Role)
		}
	}

	var buf bytes.Buffer
	if err := shellTemplate.Execute(&buf, data); err != nil {
		slog.Error("failed to render shell", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// RedirectLogin はログインページへリダイレクトする。
// GET /
func (h *PageHandler) RedirectLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.policies.Current().Homes.Login, http.StatusFound)
}

// RedirectAdminHome は管理者ホームへリダイレクトする。
// GET /admin
func (h *PageHandler) RedirectAdminHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.policies.Current().Homes.Admin, http.StatusFound)
}
