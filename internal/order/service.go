// Package order は注文の作成と管理のドメインロジックを提供する。
package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/repository"
	"github.com/hitoshi/bakery/internal/security"
)

// CartSource は注文の元になるカート。
type CartSource interface {
	Get(ctx context.Context, userID string) (model.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// Recorder は注文のメトリクスを記録する。
type Recorder interface {
	RecordOrderCreated(totalCents int64)
}

// Config は注文サービスの設定。
type Config struct {
	WhatsAppNumber string
	Location       *time.Location // メッセージの日付に使うタイムゾーン
}

// Placed は作成された注文とWhatsAppへの送信リンク。
type Placed struct {
	Order       *model.Order
	WhatsAppURL string
}

// Service は注文のサービス層。
type Service struct {
	orders    repository.OrderRepository
	carts     CartSource
	sanitizer security.Sanitizer
	recorder  Recorder
	config    Config
	now       func() time.Time
}

// NewService はServiceを生成する。recorderはnil可。
func NewService(
	orders repository.OrderRepository,
	carts CartSource,
	sanitizer security.Sanitizer,
	recorder Recorder,
	config Config,
) *Service {
	if config.Location == nil {
		config.Location = time.FixedZone("PET", -5*60*60)
	}
	return &Service{
		orders:    orders,
		carts:     carts,
		sanitizer: sanitizer,
		recorder:  recorder,
		config:    config,
		now:       time.Now,
	}
}

// Create はカートの内容から注文を作成する。
// フロー: カート取得 → 合計計算 → 注文・明細保存（単価はこの時点の価格） → カートを空にする → リンク生成
func (s *Service) Create(ctx context.Context, userID, notes string) (*Placed, error) {
	// 1. カート取得
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗しました: %w", err)
	}
	if c.IsEmpty() {
		return nil, model.NewEmptyCartError()
	}

	// 2. 注文の組み立て
	now := s.now()
	o := &model.Order{
		ID:         uuid.New().String(),
		UserID:     userID,
		Status:     model.OrderStatusPending,
		TotalCents: c.TotalCents(),
		Notes:      s.sanitizer.Sanitize(notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	items := make([]model.OrderItem, 0, len(c.Items))
	for _, ci := range c.Items {
		items = append(items, model.OrderItem{
			ID:              uuid.New().String(),
			OrderID:         o.ID,
			ProductID:       ci.Product.ID,
			Quantity:        ci.Quantity,
			UnitPriceCents:  ci.Product.PriceCents,
			ProductName:     ci.Product.Name,
			ProductImageURL: ci.Product.ImageURL,
		})
	}

	// 3. 保存
	if err := s.orders.CreateWithItems(ctx, o, items); err != nil {
		return nil, fmt.Errorf("注文の作成に失敗しました: %w", err)
	}
	o.Items = items

	// 4. カートを空にする。失敗しても注文は成立している
	if err := s.carts.Clear(ctx, userID); err != nil {
		slog.Warn("failed to clear cart after order",
			slog.String("user_id", userID),
			slog.String("order_id", o.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.recorder != nil {
		s.recorder.RecordOrderCreated(o.TotalCents)
	}
	slog.Info("order created",
		slog.String("order_id", o.ID),
		slog.String("user_id", userID),
		slog.Int64("total_cents", o.TotalCents),
		slog.Int("items", len(items)),
	)

	return &Placed{
		Order:       o,
		WhatsAppURL: WhatsAppLink(s.config.WhatsAppNumber, o, items, now.In(s.config.Location)),
	}, nil
}

// ListMine はユーザー自身の注文を新しい順に返す。
func (s *Service) ListMine(ctx context.Context, userID string) ([]*model.Order, error) {
	orders, err := s.orders.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗しました: %w", err)
	}
	return orders, nil
}

// ListAll は全注文を顧客情報付きで返す（管理者向け）。
func (s *Service) ListAll(ctx context.Context) ([]*model.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗しました: %w", err)
	}
	return orders, nil
}

// UpdateStatus は注文のステータスを変更する（管理者向け）。
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if !status.Valid() {
		return model.NewInvalidStatusError(string(status))
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return model.NewOrderNotFoundError(orderID)
	}

	found, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return fmt.Errorf("注文ステータスの更新に失敗しました: %w", err)
	}
	if !found {
		return model.NewOrderNotFoundError(orderID)
	}

	slog.Info("order status updated",
		slog.String("order_id", orderID),
		slog.String("status", string(status)),
	)
	return nil
}
