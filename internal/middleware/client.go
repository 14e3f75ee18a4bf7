package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hitoshi/bakery/internal/browser"
)

const (
	// ClientCookieName はブラウザクライアントを識別するCookieの名前。
	ClientCookieName = "client_id"

	clientCookieMaxAge = 400 * 24 * 60 * 60 // ブラウザが許容する上限
)

// CookieConfig はサーバーが発行するCookieの共通属性。
type CookieConfig struct {
	Secure bool
	Domain string
}

// ClientRegistry はクライアントIDからブラウザ状態を引くためのインターフェース。
// browser.Registryが満たす。
type ClientRegistry interface {
	GetOrCreate(id string) (*browser.Client, bool)
	Restore(c *browser.Client, sessionID string)
}

// NewClientMiddleware はclient_id Cookieでブラウザを識別し、
// その状態をリクエストコンテキストに注入するミドルウェアを返す。
//
// 新しく作成したクライアントがセッションCookieを持つ場合は非同期の復元を開始する。
// 既存クライアントのストアが別のセッションでログイン中の場合（別タブでの再ログイン等）は
// ストアを消去し、Cookieのセッションで復元し直す。
func NewClientMiddleware(registry ClientRegistry, config CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(ClientCookieName); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					id = cookie.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookieName,
					Value:    id,
					Path:     "/",
					Domain:   config.Domain,
					MaxAge:   clientCookieMaxAge,
					HttpOnly: true,
					Secure:   config.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c, created := registry.GetOrCreate(id)
			sessionID := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				sessionID = cookie.Value
			}

			switch snap := c.Store.Snapshot(); {
			case created:
				if sessionID != "" {
					registry.Restore(c, sessionID)
				}
			case snap.LoggedIn() && snap.SessionID != sessionID:
				c.Store.ClearSession()
				if sessionID != "" {
					registry.Restore(c, sessionID)
				}
			}

			noteClientID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(browser.NewContext(r.Context(), c)))
		})
	}
}

// SetSessionCookie はセッションCookieを発行する。
func SetSessionCookie(w http.ResponseWriter, sessionID string, maxAge int, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	SetSessionCookie(w, "", -1, config)
}
