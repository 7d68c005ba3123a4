// Category HTTP handlers.
//
// This file exposes REST endpoints for categories:
//   - GET    /categories
//   - GET    /categories/{id}        (?include=products preloads products)
//   - POST   /categories             (Idempotency-Key aware)
//   - PUT    /categories/{id}
//   - DELETE /categories/{id}
//
// Request parts are declared as shapes below and checked by validation.Gate
// before the handler runs; handlers read the parsed values back from the
// context.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-catalog-backend/internal/domain"
	"github.com/tbourn/go-catalog-backend/internal/http/middleware"
	"github.com/tbourn/go-catalog-backend/internal/http/validation"
)

//
// Request shapes
//

// IDParams is the path shape shared by every /{id} route.
type IDParams struct {
	validation.Strict
	ID uint `json:"id" validate:"gt=0"`
}

// CategoryQuery is the query shape of GET /categories/{id}.
type CategoryQuery struct {
	validation.Strict
	// Include preloads related rows; only "products" is supported.
	Include *string `json:"include" validate:"oneof=products"`
}

// CategoryRequest is the JSON payload for creating or replacing a category.
type CategoryRequest struct {
	validation.Strict
	Name string `json:"name" example:"Books"`
}

// Gates for the category routes.
var (
	GetCategoryGate    = validation.Gate[IDParams, CategoryQuery, validation.None]()
	CreateCategoryGate = validation.Gate[validation.None, validation.None, CategoryRequest]()
	UpdateCategoryGate = validation.Gate[IDParams, validation.None, CategoryRequest]()
	DeleteCategoryGate = validation.Gate[IDParams, validation.None, validation.None]()
)

//
// Handlers
//

// ListCategories godoc
// @ID          listCategories
// @Summary     List categories
// @Description Returns every category ordered by id. An empty catalog answers 404.
// @Description Supports conditional requests via ETag / If-None-Match.
// @Tags        Categories
// @Produce     json
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Success     200  {array}   domain.Category
// @Success     304  "Not modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Categories not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	if notModified(c, "categories", h.catSvc.Stats) {
		return
	}
	items, err := h.catSvc.List(c.Request.Context())
	writeList(c, categoryResource, items, err)
}

// GetCategory godoc
// @ID          getCategory
// @Summary     Get a category
// @Tags        Categories
// @Produce     json
// @Param       id       path   int     true   "Category ID"  minimum(1)
// @Param       include  query  string  false  "Preload related rows"  Enums(products)
// @Success     200  {object}  domain.Category
// @Failure     400  {array}   validation.Issue        "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id} [get]
func (h *Handlers) GetCategory(c *gin.Context) {
	p := validation.ParamsOf[IDParams](c)
	q := validation.QueryOf[CategoryQuery](c)
	withProducts := q.Include != nil && *q.Include == "products"

	cat, err := h.catSvc.Get(c.Request.Context(), p.ID, withProducts)
	writeRecord(c, categoryResource, cat, err)
}

// CreateCategory godoc
// @ID          createCategory
// @Summary     Create a category
// @Description Supports idempotency via the Idempotency-Key header (same key → same record,
// @Description answered with Idempotency-Replayed: true).
// @Tags        Categories
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                    false  "Idempotency key for safe retries"
// @Param       body             body    handlers.CategoryRequest  true   "Category payload"
// @Success     200  {object}  domain.Category
// @Failure     400  {array}   validation.Issue        "Validation failed or constraint violated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories [post]
func (h *Handlers) CreateCategory(c *gin.Context) {
	b := validation.BodyOf[CategoryRequest](c)
	key, _ := middleware.GetIdempotencyKey(c)

	cat, replayed, err := h.catSvc.Create(c.Request.Context(), domain.CategoryInput{Name: b.Name}, key)
	if err == nil && replayed {
		middleware.MarkReplayed(c)
	}
	writeRecord(c, categoryResource, cat, err)
}

// UpdateCategory godoc
// @ID          updateCategory
// @Summary     Replace a category
// @Tags        Categories
// @Accept      json
// @Produce     json
// @Param       id    path  int                       true  "Category ID"  minimum(1)
// @Param       body  body  handlers.CategoryRequest  true  "Category payload"
// @Success     200  {object}  domain.Category
// @Failure     400  {array}   validation.Issue        "Validation failed or constraint violated"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id} [put]
func (h *Handlers) UpdateCategory(c *gin.Context) {
	p := validation.ParamsOf[IDParams](c)
	b := validation.BodyOf[CategoryRequest](c)

	cat, err := h.catSvc.Update(c.Request.Context(), p.ID, domain.CategoryInput{Name: b.Name})
	writeRecord(c, categoryResource, cat, err)
}

// DeleteCategory godoc
// @ID          deleteCategory
// @Summary     Delete a category
// @Description Fails with a constraint error while products still reference the category.
// @Tags        Categories
// @Produce     json
// @Param       id  path  int  true  "Category ID"  minimum(1)
// @Success     200  {object}  domain.Category         "The deleted category"
// @Failure     400  {object}  handlers.ErrorResponse  "Constraint violated"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id} [delete]
func (h *Handlers) DeleteCategory(c *gin.Context) {
	p := validation.ParamsOf[IDParams](c)

	cat, err := h.catSvc.Delete(c.Request.Context(), p.ID)
	writeRecord(c, categoryResource, cat, err)
}
