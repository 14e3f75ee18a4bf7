package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/bakery/internal/model"
)

var testProduct = &model.Product{
	ID:          "prod-1",
	Name:        "Pan de yema",
	Description: "Pan suave de yema de huevo",
	PriceCents:  450,
	Stock:       20,
	ImageURL:    "/uploads/pan.jpg",
	Category:    "Panes",
	Active:      true,
	CreatedAt:   time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	UpdatedAt:   time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
}

// withURLParam はchiのルーティングを通さずにURLパラメータを設定する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCatalogHandler_ListProducts_FiltersByCategory(t *testing.T) {
	var gotCategory string
	svc := &mockCatalogService{
		listActiveFn: func(ctx context.Context, category string) ([]*model.Product, error) {
			gotCategory = category
			return []*model.Product{testProduct}, nil
		},
	}
	h := NewCatalogHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	h.ListProducts(w, httptest.NewRequest(http.MethodGet, "/api/catalog/products?category=Panes", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotCategory != "Panes" {
		t.Errorf("category = %q, want Panes", gotCategory)
	}
	got := decodeBody[[]productResponse](t, w)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Price != "S/ 4.50" {
		t.Errorf("price = %q, want S/ 4.50", got[0].Price)
	}
}

func TestCatalogHandler_ListProducts_EmptyIsArray(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{}, 1<<20)

	w := httptest.NewRecorder()
	h.ListProducts(w, httptest.NewRequest(http.MethodGet, "/api/catalog/products", nil))

	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestCatalogHandler_Categories_EmptyIsArray(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{}, 1<<20)

	w := httptest.NewRecorder()
	h.Categories(w, httptest.NewRequest(http.MethodGet, "/api/catalog/categories", nil))

	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestCatalogHandler_CreateProduct_DefaultsToActive(t *testing.T) {
	var got model.ProductForm
	svc := &mockCatalogService{
		createFn: func(ctx context.Context, form model.ProductForm) (*model.Product, error) {
			got = form
			return testProduct, nil
		},
	}
	h := NewCatalogHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	h.CreateProduct(w, jsonRequest(http.MethodPost, "/api/admin/products",
		`{"name":"Pan de yema","price_cents":450,"stock":20,"category":"Panes"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	want := model.ProductForm{Name: "Pan de yema", PriceCents: 450, Stock: 20, Category: "Panes", Active: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogHandler_CreateProduct_ValidationError(t *testing.T) {
	svc := &mockCatalogService{
		createFn: func(ctx context.Context, form model.ProductForm) (*model.Product, error) {
			return nil, model.NewValidationError(map[string]string{"price_cents": "El precio debe ser mayor a cero."})
		},
	}
	h := NewCatalogHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	h.CreateProduct(w, jsonRequest(http.MethodPost, "/api/admin/products", `{"name":"x"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCatalogHandler_UpdateProduct_PartialFields(t *testing.T) {
	var gotID string
	var got model.ProductUpdate
	svc := &mockCatalogService{
		updateFn: func(ctx context.Context, id string, u model.ProductUpdate) (*model.Product, error) {
			gotID, got = id, u
			return testProduct, nil
		},
	}
	h := NewCatalogHandler(svc, 1<<20)

	req := withURLParam(jsonRequest(http.MethodPatch, "/api/admin/products/prod-1", `{"stock":0,"active":false}`), "id", "prod-1")
	w := httptest.NewRecorder()
	h.UpdateProduct(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != "prod-1" {
		t.Errorf("id = %q, want prod-1", gotID)
	}
	if got.Stock == nil || *got.Stock != 0 || got.Active == nil || *got.Active {
		t.Errorf("update = %+v, want stock=0 active=false", got)
	}
	if got.Name != nil || got.PriceCents != nil {
		t.Errorf("untouched fields should be nil: %+v", got)
	}
}

func TestCatalogHandler_DeleteProduct(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"deleted", nil, http.StatusNoContent},
		{"not found", model.NewProductNotFoundError("prod-x"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCatalogService{
				deleteFn: func(ctx context.Context, id string) error { return tt.err },
			}
			h := NewCatalogHandler(svc, 1<<20)

			w := httptest.NewRecorder()
			h.DeleteProduct(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/api/admin/products/prod-x", nil), "id", "prod-x"))

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func multipartImageRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "pan.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCatalogHandler_UploadImage(t *testing.T) {
	payload := []byte("\x89PNG\r\n\x1a\nfake")
	var received []byte
	svc := &mockCatalogService{
		uploadImageFn: func(ctx context.Context, r io.Reader) (string, error) {
			received, _ = io.ReadAll(r)
			return "/uploads/abc.png", nil
		},
	}
	h := NewCatalogHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	h.UploadImage(w, multipartImageRequest(t, "image", payload))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	if !bytes.Equal(received, payload) {
		t.Errorf("service received %q, want %q", received, payload)
	}
	if resp := decodeBody[imageResponse](t, w); resp.URL != "/uploads/abc.png" {
		t.Errorf("url = %q", resp.URL)
	}
}

func TestCatalogHandler_UploadImage_MissingFile(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{}, 1<<20)

	w := httptest.NewRecorder()
	h.UploadImage(w, multipartImageRequest(t, "other", []byte("x")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCatalogHandler_UploadImage_TooLarge(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{}, 16)

	w := httptest.NewRecorder()
	h.UploadImage(w, multipartImageRequest(t, "image", bytes.Repeat([]byte("a"), multipartOverhead+1024)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCatalogHandler_ImportImage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ssrf blocked", model.NewSSRFBlockedError(), http.StatusForbidden},
		{"fetch failed", model.NewImageFetchFailedError("timeout"), http.StatusBadGateway},
		{"not an image", model.NewInvalidImageError("formato no permitido"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCatalogService{
				importImageFn: func(ctx context.Context, rawURL string) (string, error) {
					return "", tt.err
				},
			}
			h := NewCatalogHandler(svc, 1<<20)

			w := httptest.NewRecorder()
			h.ImportImage(w, jsonRequest(http.MethodPost, "/api/admin/products/images/import", `{"url":"http://169.254.169.254/"}`))

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}
