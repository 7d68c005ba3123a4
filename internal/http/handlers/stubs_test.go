package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-catalog-backend/internal/domain"
	"github.com/tbourn/go-catalog-backend/internal/http/middleware"
)

// ---------- stub services ----------

type stubCatSvc struct {
	list   func(ctx context.Context) ([]domain.Category, error)
	get    func(ctx context.Context, id uint, withProducts bool) (*domain.Category, error)
	create func(ctx context.Context, in domain.CategoryInput, key string) (*domain.Category, bool, error)
	update func(ctx context.Context, id uint, in domain.CategoryInput) (*domain.Category, error)
	del    func(ctx context.Context, id uint) (*domain.Category, error)
	stats  func(ctx context.Context) (int64, *time.Time, error)
	calls  int
}

func (s *stubCatSvc) List(ctx context.Context) ([]domain.Category, error) {
	s.calls++
	return s.list(ctx)
}

func (s *stubCatSvc) Get(ctx context.Context, id uint, withProducts bool) (*domain.Category, error) {
	s.calls++
	return s.get(ctx, id, withProducts)
}

func (s *stubCatSvc) Create(ctx context.Context, in domain.CategoryInput, key string) (*domain.Category, bool, error) {
	s.calls++
	return s.create(ctx, in, key)
}

func (s *stubCatSvc) Update(ctx context.Context, id uint, in domain.CategoryInput) (*domain.Category, error) {
	s.calls++
	return s.update(ctx, id, in)
}

func (s *stubCatSvc) Delete(ctx context.Context, id uint) (*domain.Category, error) {
	s.calls++
	return s.del(ctx, id)
}

func (s *stubCatSvc) Stats(ctx context.Context) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, nil
	}
	return s.stats(ctx)
}

type stubProdSvc struct {
	list   func(ctx context.Context) ([]domain.Product, error)
	get    func(ctx context.Context, id uint) (*domain.Product, error)
	create func(ctx context.Context, in domain.ProductInput, key string) (*domain.Product, bool, error)
	update func(ctx context.Context, id uint, in domain.ProductInput) (*domain.Product, error)
	del    func(ctx context.Context, id uint) (*domain.Product, error)
	stats  func(ctx context.Context) (int64, *time.Time, error)
	calls  int
}

func (s *stubProdSvc) List(ctx context.Context) ([]domain.Product, error) {
	s.calls++
	return s.list(ctx)
}

func (s *stubProdSvc) Get(ctx context.Context, id uint) (*domain.Product, error) {
	s.calls++
	return s.get(ctx, id)
}

func (s *stubProdSvc) Create(ctx context.Context, in domain.ProductInput, key string) (*domain.Product, bool, error) {
	s.calls++
	return s.create(ctx, in, key)
}

func (s *stubProdSvc) Update(ctx context.Context, id uint, in domain.ProductInput) (*domain.Product, error) {
	s.calls++
	return s.update(ctx, id, in)
}

func (s *stubProdSvc) Delete(ctx context.Context, id uint) (*domain.Product, error) {
	s.calls++
	return s.del(ctx, id)
}

func (s *stubProdSvc) Stats(ctx context.Context) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, nil
	}
	return s.stats(ctx)
}

// ---------- router + request helpers ----------

// newTestRouter mounts the catalog routes under /api the same way the
// production router does (gates in front of handlers).
func newTestRouter(cat CategoryService, prod ProductService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	h := New(cat, prod)
	api := r.Group("/api")
	api.GET("/categories", h.ListCategories)
	api.GET("/categories/:id", GetCategoryGate, h.GetCategory)
	api.POST("/categories", CreateCategoryGate, h.CreateCategory)
	api.PUT("/categories/:id", UpdateCategoryGate, h.UpdateCategory)
	api.DELETE("/categories/:id", DeleteCategoryGate, h.DeleteCategory)
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", GetProductGate, h.GetProduct)
	api.POST("/products", CreateProductGate, h.CreateProduct)
	api.PUT("/products/:id", UpdateProductGate, h.UpdateProduct)
	api.DELETE("/products/:id", DeleteProductGate, h.DeleteProduct)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body.Message
}

func issuesOf(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var body []struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode issues %q: %v", w.Body.String(), err)
	}
	out := make([]string, len(body))
	for i, b := range body {
		out[i] = b.Message
	}
	return out
}
