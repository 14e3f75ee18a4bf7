package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/repository"
	"github.com/hitoshi/bakery/internal/security"
)

// --- モック定義 ---

type mockProductRepo struct {
	listActiveFn      func(ctx context.Context, category string) ([]*model.Product, error)
	listCategoriesFn  func(ctx context.Context) ([]string, error)
	listAllFn         func(ctx context.Context) ([]*model.Product, error)
	findByIDFn        func(ctx context.Context, id string) (*model.Product, error)
	findActiveByIDsFn func(ctx context.Context, ids []string) ([]*model.Product, error)
	createFn          func(ctx context.Context, p *model.Product) error
	updateFn          func(ctx context.Context, p *model.Product) error
	deactivateFn      func(ctx context.Context, id string) (bool, error)
}

func (m *mockProductRepo) ListActive(ctx context.Context, category string) ([]*model.Product, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, category)
	}
	return nil, nil
}

func (m *mockProductRepo) ListCategories(ctx context.Context) ([]string, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockProductRepo) ListAll(ctx context.Context) ([]*model.Product, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProductRepo) FindActiveByIDs(ctx context.Context, ids []string) ([]*model.Product, error) {
	if m.findActiveByIDsFn != nil {
		return m.findActiveByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockProductRepo) Create(ctx context.Context, p *model.Product) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockProductRepo) Update(ctx context.Context, p *model.Product) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockProductRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return false, nil
}

type mockImageStore struct {
	saveFn func(ctx context.Context, r io.Reader) (string, error)
}

func (m *mockImageStore) Save(ctx context.Context, r io.Reader) (string, error) {
	return m.saveFn(ctx, r)
}

type mockImporter struct {
	importFn func(ctx context.Context, rawURL string) (string, error)
}

func (m *mockImporter) Import(ctx context.Context, rawURL string) (string, error) {
	return m.importFn(ctx, rawURL)
}

var _ repository.ProductRepository = (*mockProductRepo)(nil)
var _ ImageStore = (*mockImageStore)(nil)
var _ ImageImporter = (*mockImporter)(nil)

const productID = "3f1c2a4e-8b7d-4c6a-9e5f-1a2b3c4d5e6f"

func newTestService(repo *mockProductRepo) *Service {
	svc := NewService(repo, security.NewTextSanitizer(), nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
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

func TestListActive_TrimsCategory(t *testing.T) {
	var gotCategory string
	repo := &mockProductRepo{
		listActiveFn: func(_ context.Context, category string) ([]*model.Product, error) {
			gotCategory = category
			return []*model.Product{{ID: productID, Name: "Pan de yema"}}, nil
		},
	}
	svc := newTestService(repo)

	products, err := svc.ListActive(context.Background(), "  panes ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCategory != "panes" {
		t.Errorf("expected category 'panes', got %q", gotCategory)
	}
	if len(products) != 1 {
		t.Errorf("expected 1 product, got %d", len(products))
	}
}

func TestCreate_SanitizesAndPersists(t *testing.T) {
	var saved *model.Product
	repo := &mockProductRepo{
		createFn: func(_ context.Context, p *model.Product) error {
			saved = p
			return nil
		},
	}
	svc := newTestService(repo)

	form := model.ProductForm{
		Name:        "  Torta de chocolate ",
		Description: "<b>Húmeda</b><script>alert(1)</script> y deliciosa",
		PriceCents:  4500,
		Stock:       3,
		Category:    "tortas",
		Active:      true,
	}
	product, err := svc.Create(context.Background(), form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	want := &model.Product{
		ID:          product.ID,
		Name:        "Torta de chocolate",
		Description: "Húmeda y deliciosa",
		PriceCents:  4500,
		Stock:       3,
		Category:    "tortas",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if diff := cmp.Diff(want, saved); diff != "" {
		t.Errorf("saved product mismatch (-want +got):\n%s", diff)
	}
	if product.ID == "" {
		t.Error("expected generated ID")
	}
}

func TestCreate_InvalidForm(t *testing.T) {
	called := false
	repo := &mockProductRepo{
		createFn: func(_ context.Context, _ *model.Product) error {
			called = true
			return nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), model.ProductForm{Name: " ", PriceCents: -1, Stock: -2})

	assertAPIErrorCode(t, err, model.ErrCodeValidation)
	var apiErr *model.APIError
	errors.As(err, &apiErr)
	want := map[string]string{"name": "required", "price": "negativo", "stock": "negativo"}
	if diff := cmp.Diff(want, apiErr.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if called {
		t.Error("product must not be created")
	}
}

func TestUpdate_PartialFieldsOnly(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &model.Product{
		ID: productID, Name: "Pan francés", Description: "Crujiente",
		PriceCents: 30, Stock: 100, Category: "panes", Active: true,
		CreatedAt: created, UpdatedAt: created,
	}
	var saved *model.Product
	repo := &mockProductRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Product, error) {
			p := *existing
			return &p, nil
		},
		updateFn: func(_ context.Context, p *model.Product) error {
			saved = p
			return nil
		},
	}
	svc := newTestService(repo)

	price := int64(35)
	active := false
	_, err := svc.Update(context.Background(), productID, model.ProductUpdate{PriceCents: &price, Active: &active})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := *existing
	want.PriceCents = 35
	want.Active = false
	want.UpdatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if diff := cmp.Diff(&want, saved); diff != "" {
		t.Errorf("updated product mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(&mockProductRepo{})
	name := "Keke"

	_, err := svc.Update(context.Background(), productID, model.ProductUpdate{Name: &name})
	assertAPIErrorCode(t, err, model.ErrCodeProductNotFound)
}

func TestGet_InvalidIDIsNotFound(t *testing.T) {
	repo := &mockProductRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Product, error) {
			t.Fatal("repository must not be queried with a malformed ID")
			return nil, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Get(context.Background(), "not-a-uuid")
	assertAPIErrorCode(t, err, model.ErrCodeProductNotFound)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		found    bool
		repoErr  error
		wantCode string
		wantErr  bool
	}{
		{"deactivates", productID, true, nil, "", false},
		{"missing", productID, false, nil, model.ErrCodeProductNotFound, true},
		{"malformed id", "x", false, nil, model.ErrCodeProductNotFound, true},
		{"db error", productID, false, errors.New("db down"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockProductRepo{
				deactivateFn: func(_ context.Context, _ string) (bool, error) {
					return tt.found, tt.repoErr
				},
			}
			svc := newTestService(repo)

			err := svc.Delete(context.Background(), tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantCode != "" {
				assertAPIErrorCode(t, err, tt.wantCode)
			}
		})
	}
}

func TestUploadAndImportImage(t *testing.T) {
	store := &mockImageStore{
		saveFn: func(_ context.Context, r io.Reader) (string, error) {
			b, _ := io.ReadAll(r)
			if string(b) != "img" {
				t.Errorf("unexpected body %q", b)
			}
			return "http://localhost/uploads/products/1-a.png", nil
		},
	}
	importer := &mockImporter{
		importFn: func(_ context.Context, rawURL string) (string, error) {
			if rawURL != "https://cdn.example.com/pan.png" {
				t.Errorf("expected trimmed URL, got %q", rawURL)
			}
			return "http://localhost/uploads/products/2-b.png", nil
		},
	}
	svc := NewService(&mockProductRepo{}, security.NewTextSanitizer(), store, importer)

	url, err := svc.UploadImage(context.Background(), strings.NewReader("img"))
	if err != nil || url != "http://localhost/uploads/products/1-a.png" {
		t.Errorf("UploadImage = (%q, %v)", url, err)
	}
	url, err = svc.ImportImage(context.Background(), " https://cdn.example.com/pan.png ")
	if err != nil || url != "http://localhost/uploads/products/2-b.png" {
		t.Errorf("ImportImage = (%q, %v)", url, err)
	}
}
