package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/order"
)

// multipartOverhead はmultipartの境界やヘッダー分の余裕。
const multipartOverhead = 64 << 10

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	ListActive(ctx context.Context, category string) ([]*model.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ListAll(ctx context.Context) ([]*model.Product, error)
	Create(ctx context.Context, form model.ProductForm) (*model.Product, error)
	Update(ctx context.Context, id string, u model.ProductUpdate) (*model.Product, error)
	Delete(ctx context.Context, id string) error
	UploadImage(ctx context.Context, r io.Reader) (string, error)
	ImportImage(ctx context.Context, rawURL string) (string, error)
}

// CatalogHandler は商品カタログと商品管理のHTTPハンドラー。
type CatalogHandler struct {
	service       CatalogServiceInterface
	maxUploadSize int64
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface, maxUploadSize int64) *CatalogHandler {
	return &CatalogHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// productResponse は商品のAPIレスポンス。
type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url"`
	Category    string    `json:"category"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
	Active      *bool  `json:"active"`
}

type productPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Stock       *int    `json:"stock"`
	ImageURL    *string `json:"image_url"`
	Category    *string `json:"category"`
	Active      *bool   `json:"active"`
}

type imageImportRequest struct {
	URL string `json:"url"`
}

type imageResponse struct {
	URL string `json:"url"`
}

// ListProducts は販売中の商品一覧を返す。?category= で絞り込む。
// GET /api/catalog/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListActive(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// Categories は販売中の商品のカテゴリ一覧を返す。
// GET /api/catalog/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// AdminListProducts は販売停止中を含む全商品を返す。
// GET /api/admin/products
func (h *CatalogHandler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// CreateProduct は商品を登録する。activeを省略した場合は販売中とする。
// POST /api/admin/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	product, err := h.service.Create(r.Context(), model.ProductForm{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Active:      active,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// UpdateProduct は商品を部分更新する。
// PATCH /api/admin/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), model.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Active:      req.Active,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// DeleteProduct は商品を販売停止にする。
// DELETE /api/admin/products/{id}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage はmultipartのimageフィールドで受け取った画像を保存する。
// POST /api/admin/products/images
func (h *CatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	file, _, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleServiceError(w, model.NewInvalidImageError("supera el tamaño máximo"))
			return
		}
		slog.Warn("failed to read image upload", slog.String("error", err.Error()))
		handleServiceError(w, model.NewInvalidImageError("no se envió ningún archivo"))
		return
	}
	defer file.Close()

	url, err := h.service.UploadImage(r.Context(), file)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, imageResponse{URL: url})
}

// ImportImage は外部URLの画像を取り込んで保存する。
// POST /api/admin/products/images/import
func (h *CatalogHandler) ImportImage(w http.ResponseWriter, r *http.Request) {
	var req imageImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.service.ImportImage(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, imageResponse{URL: url})
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Price:       order.FormatSoles(p.PriceCents),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductResponses(products []*model.Product) []productResponse {
	results := make([]productResponse, len(products))
	for i, p := range products {
		results[i] = toProductResponse(p)
	}
	return results
}

