package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/order"
)

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	Get(ctx context.Context, userID string) (model.Cart, error)
	Add(ctx context.Context, userID, productID string, qty int) (model.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, qty int) (model.Cart, error)
	Remove(ctx context.Context, userID, productID string) (model.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// CartHandler はカートのHTTPハンドラー。
type CartHandler struct {
	service CartServiceInterface
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(service CartServiceInterface) *CartHandler {
	return &CartHandler{service: service}
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemResponse struct {
	Product       productResponse `json:"product"`
	Quantity      int             `json:"quantity"`
	SubtotalCents int64           `json:"subtotal_cents"`
	Subtotal      string          `json:"subtotal"`
}

type cartResponse struct {
	Items      []cartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	TotalCents int64              `json:"total_cents"`
	Total      string             `json:"total"`
	IsEmpty    bool               `json:"is_empty"`
}

// GetCart はカートの内容を返す。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	cart, err := h.service.Get(r.Context(), p.UserID)
	h.respond(w, cart, err)
}

// AddItem は商品をカートに追加する。quantityを省略した場合は1個とする。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req addToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	cart, err := h.service.Add(r.Context(), p.UserID, req.ProductID, qty)
	h.respond(w, cart, err)
}

// UpdateItem はカート内の商品の数量を変更する。0以下の場合は削除する。
// PUT /api/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := h.service.UpdateQuantity(r.Context(), p.UserID, chi.URLParam(r, "id"), req.Quantity)
	h.respond(w, cart, err)
}

// RemoveItem はカートから商品を削除する。
// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	cart, err := h.service.Remove(r.Context(), p.UserID, chi.URLParam(r, "id"))
	h.respond(w, cart, err)
}

// ClearCart はカートを空にする。
// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.service.Clear(r.Context(), p.UserID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) respond(w http.ResponseWriter, cart model.Cart, err error) {
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func toCartResponse(cart model.Cart) cartResponse {
	items := make([]cartItemResponse, len(cart.Items))
	for i, item := range cart.Items {
		product := item.Product
		items[i] = cartItemResponse{
			Product:       toProductResponse(&product),
			Quantity:      item.Quantity,
			SubtotalCents: item.SubtotalCents(),
			Subtotal:      order.FormatSoles(item.SubtotalCents()),
		}
	}
	return cartResponse{
		Items:      items,
		TotalItems: cart.TotalItems(),
		TotalCents: cart.TotalCents(),
		Total:      order.FormatSoles(cart.TotalCents()),
		IsEmpty:    cart.IsEmpty(),
	}
}
