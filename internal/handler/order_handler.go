package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/order"
)

// OrderServiceInterface は注文ハンドラーが必要とするサービスインターフェース。
type OrderServiceInterface interface {
	Create(ctx context.Context, userID, notes string) (*order.Placed, error)
	ListMine(ctx context.Context, userID string) ([]*model.Order, error)
	ListAll(ctx context.Context) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
}

// OrderHandler は注文のHTTPハンドラー。
type OrderHandler struct {
	service OrderServiceInterface
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(service OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: service}
}

type createOrderRequest struct {
	Notes string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Subtotal       string `json:"subtotal"`
}

type customerResponse struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	Number     string              `json:"number"`
	Status     string              `json:"status"`
	TotalCents int64               `json:"total_cents"`
	Total      string              `json:"total"`
	Notes      string              `json:"notes,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	Items      []orderItemResponse `json:"items"`
	Customer   *customerResponse   `json:"customer,omitempty"`
}

type placedOrderResponse struct {
	Order       orderResponse `json:"order"`
	WhatsAppURL string        `json:"whatsapp_url"`
}

// CreateOrder はカートの内容で注文を作成し、WhatsAppへの送信リンクを返す。
// POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	placed, err := h.service.Create(r.Context(), p.UserID, req.Notes)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, placedOrderResponse{
		Order:       toOrderResponse(placed.Order),
		WhatsAppURL: placed.WhatsAppURL,
	})
}

// ListMyOrders はログインユーザーの注文履歴を返す。
// GET /api/orders
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	orders, err := h.service.ListMine(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// AdminListOrders は全注文を顧客情報付きで返す。
// GET /api/admin/orders
func (h *OrderHandler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// UpdateStatus は注文のステータスを変更する。
// PUT /api/admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), model.OrderStatus(req.Status)); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ImageURL:       item.ProductImageURL,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			Subtotal:       order.FormatSoles(item.UnitPriceCents * int64(item.Quantity)),
		}
	}
	resp := orderResponse{
		ID:         o.ID,
		Number:     order.Number(o.ID),
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		Total:      order.FormatSoles(o.TotalCents),
		Notes:      o.Notes,
		CreatedAt:  o.CreatedAt,
		Items:      items,
	}
	if o.Customer != nil {
		resp.Customer = &customerResponse{FullName: o.Customer.FullName, Phone: o.Customer.Phone}
	}
	return resp
}

func toOrderResponses(orders []*model.Order) []orderResponse {
	results := make([]orderResponse, len(orders))
	for i, o := range orders {
		results[i] = toOrderResponse(o)
	}
	return results
}
