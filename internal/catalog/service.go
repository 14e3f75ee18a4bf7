// Package catalog は商品カタログの閲覧と管理のドメインロジックを提供する。
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/repository"
	"github.com/hitoshi/bakery/internal/security"
	"github.com/hitoshi/bakery/internal/validation"
)

// ImageStore は商品画像の保存先。
type ImageStore interface {
	Save(ctx context.Context, r io.Reader) (string, error)
}

// ImageImporter は外部URLの画像を取り込む。
type ImageImporter interface {
	Import(ctx context.Context, rawURL string) (string, error)
}

// Service は商品カタログのサービス層。
type Service struct {
	products  repository.ProductRepository
	sanitizer security.Sanitizer
	images    ImageStore
	importer  ImageImporter
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	products repository.ProductRepository,
	sanitizer security.Sanitizer,
	images ImageStore,
	importer ImageImporter,
) *Service {
	return &Service{
		products:  products,
		sanitizer: sanitizer,
		images:    images,
		importer:  importer,
		now:       time.Now,
	}
}

// ListActive は販売中の商品を返す。categoryが空なら全カテゴリ。
func (s *Service) ListActive(ctx context.Context, category string) ([]*model.Product, error) {
	products, err := s.products.ListActive(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	return products, nil
}

// Categories は販売中の商品のカテゴリ一覧を返す。
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.products.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// ListAll は販売停止中を含む全商品を返す（管理者向け）。
func (s *Service) ListAll(ctx context.Context) ([]*model.Product, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	return products, nil
}

// Get は商品を取得する。存在しない場合はPRODUCT_NOT_FOUND。
func (s *Service) Get(ctx context.Context, id string) (*model.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewProductNotFoundError(id)
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}
	return product, nil
}

// Create は商品を作成する。説明文はプレーンテキストに変換して保存する。
func (s *Service) Create(ctx context.Context, form model.ProductForm) (*model.Product, error) {
	if errs := validation.ValidateProductForm(form); errs != nil {
		return nil, model.NewValidationError(errs)
	}

	now := s.now()
	product := &model.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(form.Name),
		Description: s.sanitizer.Sanitize(form.Description),
		PriceCents:  form.PriceCents,
		Stock:       form.Stock,
		ImageURL:    strings.TrimSpace(form.ImageURL),
		Category:    strings.TrimSpace(form.Category),
		Active:      form.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}

	slog.Info("product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)
	return product, nil
}

// Update は指定されたフィールドのみを更新し、updated_atを更新する。
func (s *Service) Update(ctx context.Context, id string, u model.ProductUpdate) (*model.Product, error) {
	if errs := validation.ValidateProductUpdate(u); errs != nil {
		return nil, model.NewValidationError(errs)
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Name != nil {
		product.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		product.Description = s.sanitizer.Sanitize(*u.Description)
	}
	if u.PriceCents != nil {
		product.PriceCents = *u.PriceCents
	}
	if u.Stock != nil {
		product.Stock = *u.Stock
	}
	if u.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*u.ImageURL)
	}
	if u.Category != nil {
		product.Category = strings.TrimSpace(*u.Category)
	}
	if u.Active != nil {
		product.Active = *u.Active
	}
	product.UpdatedAt = s.now()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}
	return product, nil
}

// Delete は商品を販売停止にする。注文履歴から参照されるため物理削除はしない。
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewProductNotFoundError(id)
	}
	found, err := s.products.Deactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	if !found {
		return model.NewProductNotFoundError(id)
	}

	slog.Info("product deactivated", slog.String("product_id", id))
	return nil
}

// UploadImage はアップロードされた画像を保存し、公開URLを返す。
func (s *Service) UploadImage(ctx context.Context, r io.Reader) (string, error) {
	url, err := s.images.Save(ctx, r)
	if err != nil {
		return "", err
	}
	return url, nil
}

// ImportImage は外部URLの画像を取り込み、公開URLを返す。
func (s *Service) ImportImage(ctx context.Context, rawURL string) (string, error) {
	return s.importer.Import(ctx, strings.TrimSpace(rawURL))
}
