package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-catalog-backend/internal/config"
	"github.com/tbourn/go-catalog-backend/internal/domain"
	"github.com/tbourn/go-catalog-backend/internal/http/middleware"
	"github.com/tbourn/go-catalog-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite file in a temp dir, production pragmas) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(db) })
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api",
		RateRPS:        1000,
		RateBurst:      1000,
		MaxBodyBytes:   1 << 20,
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, cfg)
	return r, db
}

func call(r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
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

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := call(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	w = call(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = call(r, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound || decode[map[string]string](t, w)["message"] != "route not found" {
		t.Fatalf("GET /nope: %d %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodPatch, "/api/categories/1", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PATCH expected 405, got %d", w.Code)
	}

	w = call(r, http.MethodGet, "/swagger/index.html", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: expected 404, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newTestRouter(t, cfg)

	w := call(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://example.com"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
	w = call(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://evil.test"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected ACAO for foreign origin: %q", got)
	}
}

func TestRegisterRoutes_SwaggerEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ := newTestRouter(t, cfg)

	w := call(r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/categories") {
		t.Fatalf("swagger doc: %d %s", w.Code, w.Body.String())
	}
}

func TestHealth_DBDown_503(t *testing.T) {
	r, db := newTestRouter(t, testConfig())
	_ = repo.Close(db)

	w := call(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestCatalog_EndToEnd(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	// Empty catalog lists answer 404.
	w := call(r, http.MethodGet, "/api/categories", "", nil)
	if w.Code != http.StatusNotFound || decode[map[string]string](t, w)["message"] != "Categories not found" {
		t.Fatalf("empty list: %d %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodPost, "/api/categories", `{"name":"Books"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	books := decode[domain.Category](t, w)
	if books.ID == 0 || books.Name != "Books" || books.CreatedAt.IsZero() {
		t.Fatalf("created: %+v", books)
	}

	// Unique name → P2002.
	w = call(r, http.MethodPost, "/api/categories", `{"name":"Books"}`, nil)
	if w.Code != http.StatusBadRequest || decode[map[string]string](t, w)["message"] != "Prisma error code: P2002" {
		t.Fatalf("duplicate: %d %s", w.Code, w.Body.String())
	}

	// Unknown category → P2003.
	w = call(r, http.MethodPost, "/api/products", `{"name":"Dune","price":9.5,"categoryId":999}`, nil)
	if w.Code != http.StatusBadRequest || decode[map[string]string](t, w)["message"] != "Prisma error code: P2003" {
		t.Fatalf("fk: %d %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodPost, "/api/products", `{"name":"Dune","price":9.5,"categoryId":`+itoa(books.ID)+`}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create product: %d %s", w.Code, w.Body.String())
	}
	dune := decode[domain.Product](t, w)

	w = call(r, http.MethodGet, "/api/categories/"+itoa(books.ID)+"?include=products", "", nil)
	withProducts := decode[domain.Category](t, w)
	if w.Code != http.StatusOK || len(withProducts.Products) != 1 || withProducts.Products[0].ID != dune.ID {
		t.Fatalf("include: %d %s", w.Code, w.Body.String())
	}

	// Category still referenced → P2003.
	w = call(r, http.MethodDelete, "/api/categories/"+itoa(books.ID), "", nil)
	if w.Code != http.StatusBadRequest || decode[map[string]string](t, w)["message"] != "Prisma error code: P2003" {
		t.Fatalf("restricted delete: %d %s", w.Code, w.Body.String())
	}

	// Full replacement clears the price.
	w = call(r, http.MethodPut, "/api/products/"+itoa(dune.ID), `{"name":"Dune Messiah","categoryId":`+itoa(books.ID)+`}`, nil)
	updated := decode[domain.Product](t, w)
	if w.Code != http.StatusOK || updated.Name != "Dune Messiah" || updated.Price != nil {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodPut, "/api/products/5000", `{"name":"x"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing categoryId: %d %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodDelete, "/api/products/"+itoa(dune.ID), "", nil)
	if w.Code != http.StatusOK || decode[domain.Product](t, w).ID != dune.ID {
		t.Fatalf("delete product: %d %s", w.Code, w.Body.String())
	}
	w = call(r, http.MethodGet, "/api/products/"+itoa(dune.ID), "", nil)
	if w.Code != http.StatusNotFound || decode[map[string]string](t, w)["message"] != "Product not found" {
		t.Fatalf("get deleted: %d %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodGet, "/api/categories/42", "", nil)
	if w.Code != http.StatusNotFound || w.Body.String() != `{"message":"Category not found"}` {
		t.Fatalf("absent category: %d %s", w.Code, w.Body.String())
	}
}

func TestCatalog_ListETag(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	call(r, http.MethodPost, "/api/categories", `{"name":"Books"}`, nil)

	w := call(r, http.MethodGet, "/api/categories", "", nil)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || !strings.HasPrefix(etag, `W/"categories:1:`) {
		t.Fatalf("list: %d etag=%q", w.Code, etag)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("Cache-Control = %q", cc)
	}

	w = call(r, http.MethodGet, "/api/categories", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional: expected 304, got %d", w.Code)
	}

	call(r, http.MethodPost, "/api/categories", `{"name":"Games"}`, nil)
	w = call(r, http.MethodGet, "/api/categories", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("changed collection: %d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestCatalog_IdempotentCreate(t *testing.T) {
	r, db := newTestRouter(t, testConfig())
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "create-books-1"}

	first := call(r, http.MethodPost, "/api/categories", `{"name":"Books"}`, hdr)
	if first.Code != http.StatusOK || first.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("first: %d headers=%v", first.Code, first.Header())
	}
	second := call(r, http.MethodPost, "/api/categories", `{"name":"Books"}`, hdr)
	if second.Code != http.StatusOK || second.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: %d %s headers=%v", second.Code, second.Body.String(), second.Header())
	}
	if decode[domain.Category](t, first).ID != decode[domain.Category](t, second).ID {
		t.Fatalf("replay returned a different record")
	}

	var n int64
	db.Model(&domain.Category{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected one category, got %d", n)
	}

	// Same key on another resource is independent.
	w := call(r, http.MethodPost, "/api/products",
		`{"name":"Dune","categoryId":`+itoa(decode[domain.Category](t, first).ID)+`}`, hdr)
	if w.Code != http.StatusOK || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("product with reused key: %d %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodPost, "/api/categories", `{"name":"Books"}`,
		map[string]string{middleware.HeaderIdempotencyKey: "bad key!"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid key: expected 400, got %d", w.Code)
	}
}

func TestCatalog_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	r, _ := newTestRouter(t, cfg)

	w := call(r, http.MethodPost, "/api/categories", `{"name":"`+strings.Repeat("x", 64)+`"}`, nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := call(r, http.MethodPost, "/echo", "0123456789AB", nil) // 12 bytes
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := call(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
