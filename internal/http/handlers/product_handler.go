// Product HTTP handlers.
//
// This file exposes REST endpoints for products:
//   - GET    /products
//   - GET    /products/{id}
//   - POST   /products               (Idempotency-Key aware)
//   - PUT    /products/{id}
//   - DELETE /products/{id}
//
// A product must reference an existing category; a dangling categoryId is
// rejected by the store and answered as a constraint violation.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-catalog-backend/internal/domain"
	"github.com/tbourn/go-catalog-backend/internal/http/middleware"
	"github.com/tbourn/go-catalog-backend/internal/http/validation"
)

// ProductRequest is the JSON payload for creating or replacing a product.
// Price is optional; omitting it (or sending null) stores no price.
type ProductRequest struct {
	validation.Strict
	Name       string   `json:"name" example:"Dune"`
	Price      *float64 `json:"price" example:"9.99"`
	CategoryID uint     `json:"categoryId" example:"1"`
}

func (b ProductRequest) input() domain.ProductInput {
	return domain.ProductInput{Name: b.Name, Price: b.Price, CategoryID: b.CategoryID}
}

// Gates for the product routes.
var (
	GetProductGate    = validation.Gate[IDParams, validation.None, validation.None]()
	CreateProductGate = validation.Gate[validation.None, validation.None, ProductRequest]()
	UpdateProductGate = validation.Gate[IDParams, validation.None, ProductRequest]()
	DeleteProductGate = validation.Gate[IDParams, validation.None, validation.None]()
)

// ListProducts godoc
// @ID          listProducts
// @Summary     List products
// @Description Returns every product ordered by id. An empty catalog answers 404.
// @Description Supports conditional requests via ETag / If-None-Match.
// @Tags        Products
// @Produce     json
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Success     200  {array}   domain.Product
// @Success     304  "Not modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Products not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	if notModified(c, "products", h.prodSvc.Stats) {
		return
	}
	items, err := h.prodSvc.List(c.Request.Context())
	writeList(c, productResource, items, err)
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Get a product
// @Tags        Products
// @Produce     json
// @Param       id  path  int  true  "Product ID"  minimum(1)
// @Success     200  {object}  domain.Product
// @Failure     400  {array}   validation.Issue        "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	p := validation.ParamsOf[IDParams](c)

	prod, err := h.prodSvc.Get(c.Request.Context(), p.ID)
	writeRecord(c, productResource, prod, err)
}

// CreateProduct godoc
// @ID          createProduct
// @Summary     Create a product
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Products
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                   false  "Idempotency key for safe retries"
// @Param       body             body    handlers.ProductRequest  true   "Product payload"
// @Success     200  {object}  domain.Product
// @Failure     400  {array}   validation.Issue        "Validation failed or constraint violated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products [post]
func (h *Handlers) CreateProduct(c *gin.Context) {
	b := validation.BodyOf[ProductRequest](c)
	key, _ := middleware.GetIdempotencyKey(c)

	prod, replayed, err := h.prodSvc.Create(c.Request.Context(), b.input(), key)
	if err == nil && replayed {
		middleware.MarkReplayed(c)
	}
	writeRecord(c, productResource, prod, err)
}

// UpdateProduct godoc
// @ID          updateProduct
// @Summary     Replace a product
// @Tags        Products
// @Accept      json
// @Produce     json
// @Param       id    path  int                      true  "Product ID"  minimum(1)
// @Param       body  body  handlers.ProductRequest  true  "Product payload"
// @Success     200  {object}  domain.Product
// @Failure     400  {array}   validation.Issue        "Validation failed or constraint violated"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products/{id} [put]
func (h *Handlers) UpdateProduct(c *gin.Context) {
	p := validation.ParamsOf[IDParams](c)
	b := validation.BodyOf[ProductRequest](c)

	prod, err := h.prodSvc.Update(c.Request.Context(), p.ID, b.input())
	writeRecord(c, productResource, prod, err)
}

// DeleteProduct godoc
// @ID          deleteProduct
// @Summary     Delete a product
// @Tags        Products
// @Produce     json
// @Param       id  path  int  true  "Product ID"  minimum(1)
// @Success     200  {object}  domain.Product          "The deleted product"
// @Failure     400  {array}   validation.Issue        "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products/{id} [delete]
func (h *Handlers) DeleteProduct(c *gin.Context) {
	p := validation.ParamsOf[IDParams](c)

	prod, err := h.prodSvc.Delete(c.Request.Context(), p.ID)
	writeRecord(c, productResource, prod, err)
}
