package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/hitoshi/bakery/internal/auth"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/order"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
	loginFn          func(ctx context.Context, email, password string) (*auth.Result, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.Profile, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.Profile, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

type mockCatalogService struct {
	listActiveFn  func(ctx context.Context, category string) ([]*model.Product, error)
	categoriesFn  func(ctx context.Context) ([]string, error)
	listAllFn     func(ctx context.Context) ([]*model.Product, error)
	createFn      func(ctx context.Context, form model.ProductForm) (*model.Product, error)
	updateFn      func(ctx context.Context, id string, u model.ProductUpdate) (*model.Product, error)
	deleteFn      func(ctx context.Context, id string) error
	uploadImageFn func(ctx context.Context, r io.Reader) (string, error)
	importImageFn func(ctx context.Context, rawURL string) (string, error)
}

func (m *mockCatalogService) ListActive(ctx context.Context, category string) ([]*model.Product, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, category)
	}
	return nil, nil
}

func (m *mockCatalogService) Categories(ctx context.Context) ([]string, error) {
	if m.categoriesFn != nil {
		return m.categoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) ListAll(ctx context.Context) ([]*model.Product, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) Create(ctx context.Context, form model.ProductForm) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, form)
	}
	return nil, nil
}

func (m *mockCatalogService) Update(ctx context.Context, id string, u model.ProductUpdate) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, u)
	}
	return nil, nil
}

func (m *mockCatalogService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockCatalogService) UploadImage(ctx context.Context, r io.Reader) (string, error) {
	if m.uploadImageFn != nil {
		return m.uploadImageFn(ctx, r)
	}
	return "", nil
}

func (m *mockCatalogService) ImportImage(ctx context.Context, rawURL string) (string, error) {
	if m.importImageFn != nil {
		return m.importImageFn(ctx, rawURL)
	}
	return "", nil
}

type mockCartService struct {
	getFn    func(ctx context.Context, userID string) (model.Cart, error)
	addFn    func(ctx context.Context, userID, productID string, qty int) (model.Cart, error)
	updateFn func(ctx context.Context, userID, productID string, qty int) (model.Cart, error)
	removeFn func(ctx context.Context, userID, productID string) (model.Cart, error)
	clearFn  func(ctx context.Context, userID string) error
}

func (m *mockCartService) Get(ctx context.Context, userID string) (model.Cart, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return model.Cart{}, nil
}

func (m *mockCartService) Add(ctx context.Context, userID, productID string, qty int) (model.Cart, error) {
	if m.addFn != nil {
		return m.addFn(ctx, userID, productID, qty)
	}
	return model.Cart{}, nil
}

func (m *mockCartService) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (model.Cart, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, productID, qty)
	}
	return model.Cart{}, nil
}

func (m *mockCartService) Remove(ctx context.Context, userID, productID string) (model.Cart, error) {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, productID)
	}
	return model.Cart{}, nil
}

func (m *mockCartService) Clear(ctx context.Context, userID string) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return nil
}

type mockOrderService struct {
	createFn       func(ctx context.Context, userID, notes string) (*order.Placed, error)
	listMineFn     func(ctx context.Context, userID string) ([]*model.Order, error)
	listAllFn      func(ctx context.Context) ([]*model.Order, error)
	updateStatusFn func(ctx context.Context, orderID string, status model.OrderStatus) error
}

func (m *mockOrderService) Create(ctx context.Context, userID, notes string) (*order.Placed, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, notes)
	}
	return nil, nil
}

func (m *mockOrderService) ListMine(ctx context.Context, userID string) ([]*model.Order, error) {
	if m.listMineFn != nil {
		return m.listMineFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockOrderService) ListAll(ctx context.Context) ([]*model.Order, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, orderID, status)
	}
	return nil
}

type mockUserService struct {
	meFn       func(ctx context.Context, userID string) (*model.Profile, error)
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Me(ctx context.Context, userID string) (*model.Profile, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
