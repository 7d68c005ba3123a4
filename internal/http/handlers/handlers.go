// Package handlers contains the Gin HTTP handlers for the catalog API.
//
// Handlers are transport-thin: request parts are parsed and checked by the
// validation gate installed in front of each route, the handler delegates to
// a service, and the shared outcome translator (outcome.go) turns the
// service result into a status code and body.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-catalog-backend/internal/domain"
)

//
// Service contracts (implemented in the services package)
//

// CategoryService defines category operations used by the handlers.
//
// Implementations must honor ctx for cancellation and report absent rows
// with repo.ErrNotFound and store constraint failures with
// *repo.ConstraintError.
type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, id uint, withProducts bool) (*domain.Category, error)
	// Create inserts a category. A non-empty idemKey makes retries with the
	// same key return the first result with replayed=true.
	Create(ctx context.Context, in domain.CategoryInput, idemKey string) (*domain.Category, bool, error)
	Update(ctx context.Context, id uint, in domain.CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, id uint) (*domain.Category, error)
	// Stats returns the row count and latest update time for ETag generation.
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// ProductService defines product operations used by the handlers. The error
// contract matches CategoryService.
type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id uint) (*domain.Product, error)
	Create(ctx context.Context, in domain.ProductInput, idemKey string) (*domain.Product, bool, error)
	Update(ctx context.Context, id uint, in domain.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uint) (*domain.Product, error)
	Stats(ctx context.Context) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Handlers groups the category and product endpoints. It depends on abstract
// service interfaces to keep transport concerns separate from persistence.
type Handlers struct {
	catSvc  CategoryService
	prodSvc ProductService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(catSvc CategoryService, prodSvc ProductService) *Handlers {
	return &Handlers{catSvc: catSvc, prodSvc: prodSvc}
}
