// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/repository"
)

// CartClearer はカートの削除インターフェース。
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
type Service struct {
	accounts    repository.AccountRepository
	profiles    repository.ProfileRepository
	sessionRepo repository.SessionRepository
	carts       CartClearer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	carts CartClearer,
) *Service {
	return &Service{
		accounts:    accounts,
		profiles:    profiles,
		sessionRepo: sessionRepo,
		carts:       carts,
	}
}

// Me は現在のユーザーのプロフィールを返す。
func (s *Service) Me(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}
	return profile, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: cart(Redis) → sessions → account（+ CASCADE: profiles, orders, order_items）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if account == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. カートを削除
	if s.carts != nil {
		if err := s.carts.Clear(ctx, userID); err != nil {
			return fmt.Errorf("カートの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. アカウントを削除
	if err := s.accounts.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
