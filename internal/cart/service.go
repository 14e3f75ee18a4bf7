package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/repository"
)

// Service はカート操作のサービス層。
// 数量はRedisに、商品情報はPostgreSQLにあり、取得時に販売中の商品と結合する。
type Service struct {
	store    *Store
	products repository.ProductRepository
}

// NewService はServiceを生成する。
func NewService(store *Store, products repository.ProductRepository) *Service {
	return &Service{store: store, products: products}
}

// Add は販売中の商品をカートに追加する。既にある場合は数量を加算する。
// 加算後の数量が在庫を超える場合は加算を取り消す。
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (model.Cart, error) {
	if qty <= 0 {
		return model.Cart{}, model.NewInvalidQuantityError(qty)
	}
	product, err := s.activeProduct(ctx, productID)
	if err != nil {
		return model.Cart{}, err
	}
	if product.Stock <= 0 || qty > product.Stock {
		return model.Cart{}, model.NewOutOfStockError(product.Name, product.Stock)
	}

	total, err := s.store.Increment(ctx, userID, productID, qty)
	if err != nil {
		return model.Cart{}, err
	}
	if total > product.Stock {
		if err := s.rollback(ctx, userID, productID, total, qty); err != nil {
			return model.Cart{}, err
		}
		return model.Cart{}, model.NewOutOfStockError(product.Name, product.Stock)
	}
	return s.Get(ctx, userID)
}

// UpdateQuantity は数量を変更する。0以下の場合は商品を取り除く。
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (model.Cart, error) {
	if qty > 0 {
		product, err := s.activeProduct(ctx, productID)
		if err != nil {
			return model.Cart{}, err
		}
		if qty > product.Stock {
			return model.Cart{}, model.NewOutOfStockError(product.Name, product.Stock)
		}
	}
	if err := s.store.Set(ctx, userID, productID, qty); err != nil {
		return model.Cart{}, err
	}
	return s.Get(ctx, userID)
}

// activeProduct は販売中の商品を返す。存在しない場合はPRODUCT_NOT_FOUND。
func (s *Service) activeProduct(ctx context.Context, productID string) (*model.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, model.NewProductNotFoundError(productID)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil || !product.Active {
		return nil, model.NewProductNotFoundError(productID)
	}
	return product, nil
}

// rollback はIncrementで加算した分を戻す。加算前に無かった商品は取り除く。
func (s *Service) rollback(ctx context.Context, userID, productID string, total, qty int) error {
	if total-qty <= 0 {
		return s.store.Remove(ctx, userID, productID)
	}
	if _, err := s.store.Increment(ctx, userID, productID, -qty); err != nil {
		return err
	}
	return nil
}

// Remove は商品をカートから取り除く。
func (s *Service) Remove(ctx context.Context, userID, productID string) (model.Cart, error) {
	if err := s.store.Remove(ctx, userID, productID); err != nil {
		return model.Cart{}, err
	}
	return s.Get(ctx, userID)
}

// Clear はカートを空にする。
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.store.Clear(ctx, userID)
}

// Get はカートを販売中の商品と結合して返す。明細は商品名順。
// 販売停止・削除された商品はカートから取り除く。
func (s *Service) Get(ctx context.Context, userID string) (model.Cart, error) {
	quantities, err := s.store.Items(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}
	if len(quantities) == 0 {
		return model.Cart{}, nil
	}

	ids := make([]string, 0, len(quantities))
	var stale []string
	for id := range quantities {
		if _, err := uuid.Parse(id); err != nil {
			stale = append(stale, id)
			continue
		}
		ids = append(ids, id)
	}

	var products []*model.Product
	if len(ids) > 0 {
		products, err = s.products.FindActiveByIDs(ctx, ids)
		if err != nil {
			return model.Cart{}, fmt.Errorf("failed to load cart products: %w", err)
		}
	}

	found := make(map[string]bool, len(products))
	c := model.Cart{Items: make([]model.CartItem, 0, len(products))}
	for _, p := range products {
		found[p.ID] = true
		c.Items = append(c.Items, model.CartItem{Product: *p, Quantity: quantities[p.ID]})
	}
	for _, id := range ids {
		if !found[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.store.Remove(ctx, userID, stale...); err != nil {
			slog.Warn("failed to prune cart", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}

	sort.Slice(c.Items, func(i, j int) bool {
		if c.Items[i].Product.Name != c.Items[j].Product.Name {
			return c.Items[i].Product.Name < c.Items[j].Product.Name
		}
		return c.Items[i].Product.ID < c.Items[j].Product.ID
	})
	return c, nil
}
