// Package auth はメールアドレスとパスワードによる認証、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/repository"
	"github.com/hitoshi/bakery/internal/validation"
)

// PasswordHasher はパスワードのハッシュ化と検証のインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// RegisterInput は会員登録の入力。
type RegisterInput = validation.Registration

// Result はログイン・登録の結果。
type Result struct {
	Session *model.Session
	Profile *model.Profile
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accounts    repository.AccountRepository
	profiles    repository.ProfileRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	config ServiceConfig,
) *Service {
	return &Service{
		accounts:    accounts,
		profiles:    profiles,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		config:      config,
	}
}

// Register は会員登録を行い、そのままログインする。
// 電話番号、メールアドレスの順に重複を確認し、アカウントとUSERプロフィールを同時に作成する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	if errs := validation.ValidateRegistration(in); errs != nil {
		return nil, model.NewValidationError(errs)
	}

	fullName := validation.NormalizeFullName(in.FullName)
	phone := validation.NormalizePhone(in.Phone)
	email := validation.NormalizeEmail(in.Email)

	// 1. 電話番号の重複確認
	phoneTaken, err := s.profiles.ExistsByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to check phone: %w", err)
	}
	if phoneTaken {
		return nil, model.NewPhoneExistsError()
	}

	// 2. メールアドレスの重複確認
	existing, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailExistsError()
	}

	// 3. アカウントとプロフィールを作成
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	id := uuid.New().String()
	account := &model.Account{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Phone:        phone,
		CreatedAt:    now,
	}
	profile := &model.Profile{
		ID:        id,
		FullName:  fullName,
		Phone:     phone,
		Role:      model.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.CreateWithProfile(ctx, account, profile); err != nil {
		return nil, fmt.Errorf("failed to create account and profile: %w", err)
	}

	slog.Info("new account registered",
		slog.String("user_id", id),
		slog.String("email", email),
	)

	// 4. セッションを発行
	session, err := s.createSession(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Result{Session: session, Profile: profile}, nil
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
// プロフィールが存在しない場合は登録時のメタデータからUSERプロフィールを作成する。
// 作成に失敗した場合はPROFILE_LOAD_FAILEDを返し、セッションは発行しない。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	if errs := validation.ValidateLogin(email, password); errs != nil {
		return nil, model.NewValidationError(errs)
	}

	// 1. 認証情報の確認
	account, err := s.accounts.FindByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewInvalidCredentialsError()
	}
	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		slog.Error("failed to verify password hash",
			slog.String("user_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidCredentialsError()
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	// 2. プロフィールの取得
	profile, err := s.loadOrCreateProfile(ctx, account)
	if err != nil {
		return nil, err
	}

	// 3. セッションを発行
	session, err := s.createSession(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", profile.ID),
		slog.String("role", string(profile.Role)),
	)
	return &Result{Session: session, Profile: profile}, nil
}

// loadOrCreateProfile はプロフィールを取得し、存在しなければ作成する。
func (s *Service) loadOrCreateProfile(ctx context.Context, account *model.Account) (*model.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, account.ID)
	if err != nil {
		slog.Error("failed to load profile",
			slog.String("user_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProfileLoadFailedError()
	}
	if profile != nil {
		return profile, nil
	}

	fullName := account.FullName
	if fullName == "" {
		fullName, _, _ = strings.Cut(account.Email, "@")
	}
	now := time.Now()
	profile = &model.Profile{
		ID:        account.ID,
		FullName:  fullName,
		Phone:     account.Phone,
		Role:      model.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		slog.Error("failed to create missing profile",
			slog.String("user_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProfileLoadFailedError()
	}

	slog.Warn("created missing profile from signup metadata", slog.String("user_id", account.ID))
	return profile, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// RestoreSession はセッションIDからプロフィールを復元する。
// セッションが無効な場合はnil, nilを返す。
func (s *Service) RestoreSession(ctx context.Context, sessionID string) (*model.Profile, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	profile, err := s.profiles.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return profile, nil
}

// GetCurrentUser はセッションから現在のユーザーのプロフィールを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.Profile, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	profile, err := s.RestoreSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("session not found or expired")
	}
	return profile, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, profile *model.Profile) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    profile.ID,
		Role:      profile.Role,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
