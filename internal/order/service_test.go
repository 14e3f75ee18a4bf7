package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/repository"
	"github.com/hitoshi/bakery/internal/security"
)

// --- モック定義 ---

type mockOrderRepo struct {
	createWithItemsFn func(ctx context.Context, o *model.Order, items []model.OrderItem) error
	findByIDFn        func(ctx context.Context, id string) (*model.Order, error)
	listByUserIDFn    func(ctx context.Context, userID string) ([]*model.Order, error)
	listAllFn         func(ctx context.Context) ([]*model.Order, error)
	updateStatusFn    func(ctx context.Context, id string, status model.OrderStatus) (bool, error)
}

func (m *mockOrderRepo) CreateWithItems(ctx context.Context, o *model.Order, items []model.OrderItem) error {
	if m.createWithItemsFn != nil {
		return m.createWithItemsFn(ctx, o, items)
	}
	return nil
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id string) (*model.Order, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockOrderRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockOrderRepo) ListAll(ctx context.Context) ([]*model.Order, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (bool, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return false, nil
}

type mockCart struct {
	cart     model.Cart
	getErr   error
	clearErr error
	cleared  bool
}

func (m *mockCart) Get(_ context.Context, _ string) (model.Cart, error) {
	return m.cart, m.getErr
}

func (m *mockCart) Clear(_ context.Context, _ string) error {
	m.cleared = true
	return m.clearErr
}

type mockRecorder struct {
	totals []int64
}

func (m *mockRecorder) RecordOrderCreated(totalCents int64) {
	m.totals = append(m.totals, totalCents)
}

var _ repository.OrderRepository = (*mockOrderRepo)(nil)
var _ CartSource = (*mockCart)(nil)
var _ Recorder = (*mockRecorder)(nil)

func sampleCart() model.Cart {
	return model.Cart{Items: []model.CartItem{
		{Product: model.Product{ID: "p1", Name: "Alfajor", PriceCents: 250}, Quantity: 2},
		{Product: model.Product{ID: "p2", Name: "Pan de yema", PriceCents: 50}, Quantity: 4},
	}}
}

func newTestService(repo *mockOrderRepo, c *mockCart, rec Recorder) *Service {
	svc := NewService(repo, c, security.NewTextSanitizer(), rec, Config{WhatsAppNumber: "51987654321"})
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC) }
	return svc
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("expected code %q, got %q", code, apiErr.Code)
	}
}

func TestCreate_PersistsOrderClearsCartAndBuildsLink(t *testing.T) {
	var savedOrder *model.Order
	var savedItems []model.OrderItem
	repo := &mockOrderRepo{
		createWithItemsFn: func(_ context.Context, o *model.Order, items []model.OrderItem) error {
			savedOrder = o
			savedItems = items
			return nil
		},
	}
	c := &mockCart{cart: sampleCart()}
	rec := &mockRecorder{}
	svc := newTestService(repo, c, rec)

	placed, err := svc.Create(context.Background(), "user-1", "<b>Sin</b> azúcar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if savedOrder.Status != model.OrderStatusPending {
		t.Errorf("expected status pendiente, got %q", savedOrder.Status)
	}
	if savedOrder.TotalCents != 700 {
		t.Errorf("expected total 700, got %d", savedOrder.TotalCents)
	}
	if savedOrder.Notes != "Sin azúcar" {
		t.Errorf("expected sanitized notes, got %q", savedOrder.Notes)
	}
	if savedOrder.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", savedOrder.UserID)
	}
	if len(savedItems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(savedItems))
	}
	for _, item := range savedItems {
		if item.OrderID != savedOrder.ID || item.ID == "" {
			t.Errorf("item not linked to order: %+v", item)
		}
	}
	if savedItems[0].UnitPriceCents != 250 || savedItems[0].Quantity != 2 {
		t.Errorf("expected price snapshot 250 x2, got %+v", savedItems[0])
	}
	if !c.cleared {
		t.Error("expected cart to be cleared")
	}
	if len(rec.totals) != 1 || rec.totals[0] != 700 {
		t.Errorf("expected order metric with 700, got %v", rec.totals)
	}

	if !strings.HasPrefix(placed.WhatsAppURL, "https://wa.me/51987654321?text=") {
		t.Errorf("unexpected link: %s", placed.WhatsAppURL)
	}
	// 2026-03-15 02:00 UTC はリマ時間で 3月14日
	if !strings.Contains(placed.WhatsAppURL, "14%20de%20marzo%20de%202026") {
		t.Errorf("expected local date in link: %s", placed.WhatsAppURL)
	}
	if placed.Order != savedOrder || len(placed.Order.Items) != 2 {
		t.Error("expected placed order to carry its items")
	}
}

func TestCreate_EmptyCart(t *testing.T) {
	called := false
	repo := &mockOrderRepo{
		createWithItemsFn: func(_ context.Context, _ *model.Order, _ []model.OrderItem) error {
			called = true
			return nil
		},
	}
	svc := newTestService(repo, &mockCart{}, &mockRecorder{})

	_, err := svc.Create(context.Background(), "user-1", "")

	assertAPIErrorCode(t, err, model.ErrCodeEmptyCart)
	if called {
		t.Error("order must not be created for an empty cart")
	}
}

func TestCreate_PersistFailureKeepsCart(t *testing.T) {
	repo := &mockOrderRepo{
		createWithItemsFn: func(_ context.Context, _ *model.Order, _ []model.OrderItem) error {
			return errors.New("tx aborted")
		},
	}
	c := &mockCart{cart: sampleCart()}
	rec := &mockRecorder{}
	svc := newTestService(repo, c, rec)

	if _, err := svc.Create(context.Background(), "user-1", ""); err == nil {
		t.Fatal("expected error")
	}
	if c.cleared {
		t.Error("cart must be kept when the order fails")
	}
	if len(rec.totals) != 0 {
		t.Error("metric must not be recorded for a failed order")
	}
}

func TestCreate_ClearFailureStillSucceeds(t *testing.T) {
	c := &mockCart{cart: sampleCart(), clearErr: errors.New("redis down")}
	svc := newTestService(&mockOrderRepo{}, c, &mockRecorder{})

	if _, err := svc.Create(context.Background(), "user-1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	const orderID = "3f1c2a4e-8b7d-4c6a-9e5f-1a2b3c4d5e6f"

	tests := []struct {
		name     string
		id       string
		status   model.OrderStatus
		found    bool
		wantCode string
	}{
		{"confirm", orderID, model.OrderStatusConfirmed, true, ""},
		{"deliver", orderID, model.OrderStatusDelivered, true, ""},
		{"invalid status", orderID, "enviado", true, model.ErrCodeInvalidStatus},
		{"missing order", orderID, model.OrderStatusCancelled, false, model.ErrCodeOrderNotFound},
		{"malformed id", "123", model.OrderStatusCancelled, true, model.ErrCodeOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStatus model.OrderStatus
			repo := &mockOrderRepo{
				updateStatusFn: func(_ context.Context, _ string, status model.OrderStatus) (bool, error) {
					gotStatus = status
					return tt.found, nil
				},
			}
			svc := newTestService(repo, &mockCart{}, nil)

			err := svc.UpdateStatus(context.Background(), tt.id, tt.status)
			if tt.wantCode != "" {
				assertAPIErrorCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotStatus != tt.status {
				t.Errorf("expected %q, got %q", tt.status, gotStatus)
			}
		})
	}
}

func TestListMine(t *testing.T) {
	repo := &mockOrderRepo{
		listByUserIDFn: func(_ context.Context, userID string) ([]*model.Order, error) {
			return []*model.Order{{ID: "o1", UserID: userID}}, nil
		},
	}
	svc := newTestService(repo, &mockCart{}, nil)

	orders, err := svc.ListMine(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].UserID != "user-1" {
		t.Errorf("unexpected orders: %+v", orders)
	}
}
