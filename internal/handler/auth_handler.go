// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bakery/internal/auth"
	"github.com/hitoshi/bakery/internal/browser"
	"github.com/hitoshi/bakery/internal/middleware"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/validation"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.Profile, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookie        middleware.CookieConfig
	SessionMaxAge int // セッションCookieの有効期間（秒）
	Homes         auth.Homes
	LoginPath     string
}

// AuthHandler はメールアドレス・パスワード認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type registerRequest struct {
	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptTerms     bool   `json:"accept_terms"`
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	ReturnURL string `json:"return_url"`
}

type passwordStrengthRequest struct {
	Password string `json:"password"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// authResponse はログイン・登録成功時のレスポンス。
// Redirectはロールと復帰先から決まるSPAの遷移先。
type authResponse struct {
	User     profileResponse `json:"user"`
	Redirect string          `json:"redirect"`
}

// Register は会員登録を処理し、そのままログイン状態にする。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), auth.RegisterInput{
		FullName:        req.FullName,
		Phone:           req.Phone,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		AcceptTerms:     req.AcceptTerms,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.signIn(w, r, result)
	writeJSON(w, http.StatusCreated, authResponse{
		User:     toProfileResponse(result.Profile),
		Redirect: auth.PostLoginPath(result.Profile.Role, "", h.config.Homes),
	})
}

// Login はメールアドレスとパスワードで認証する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.signIn(w, r, result)
	writeJSON(w, http.StatusOK, authResponse{
		User:     toProfileResponse(result.Profile),
		Redirect: auth.PostLoginPath(result.Profile.Role, req.ReturnURL, h.config.Homes),
	})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			// ログアウト失敗してもCookieとストアはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	middleware.ClearSessionCookie(w, h.config.Cookie)
	if c, ok := browser.FromContext(r.Context()); ok {
		c.Store.ClearSession()
	}

	writeJSON(w, http.StatusOK, map[string]string{"redirect": h.config.LoginPath})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Warn("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// PasswordStrength はパスワード強度の表示用スコアを返す。
// POST /auth/password-strength
func (h *AuthHandler) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req passwordStrengthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, validation.PasswordStrength(req.Password))
}

// signIn はセッションCookieを発行し、クライアントのセッションストアを更新する。
func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, result *auth.Result) {
	middleware.SetSessionCookie(w, result.Session.ID, h.config.SessionMaxAge, h.config.Cookie)
	if c, ok := browser.FromContext(r.Context()); ok {
		c.Store.SetSession(result.Profile, result.Session.ID)
	}
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		ID:       p.ID,
		FullName: p.FullName,
		Phone:    p.Phone,
		Role:     string(p.Role),
	}
}
