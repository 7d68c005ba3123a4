// Outcome translation.
//
// Every catalog endpoint maps its service result through the same table,
// parameterized only by the resource's display name:
//
//	list ok, non-empty        → 200 collection
//	list ok, empty            → 404 {"message": "<Plural> not found"}
//	record ok                 → 200 record
//	record absent             → 404 {"message": "<Singular> not found"}
//	*repo.ConstraintError     → 400 {"message": "Prisma error code: <code>"}
//	anything else             → 500 {"message": err.Error()}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-catalog-backend/internal/http/middleware"
	"github.com/tbourn/go-catalog-backend/internal/repo"
)

// Resource carries the display names used in not-found messages.
type Resource struct {
	Singular string
	Plural   string
}

// NewResource title-cases the given lower-case names ("category",
// "categories" → "Category", "Categories").
func NewResource(singular, plural string) Resource {
	title := cases.Title(language.English)
	return Resource{
		Singular: title.String(singular),
		Plural:   title.String(plural),
	}
}

var (
	categoryResource = NewResource("category", "categories")
	productResource  = NewResource("product", "products")
)

// writeList answers a collection read.
func writeList[T any](c *gin.Context, r Resource, items []T, err error) {
	if err != nil {
		writeError(c, r, err)
		return
	}
	if len(items) == 0 {
		fail(c, http.StatusNotFound, r.Plural+" not found")
		return
	}
	ok(c, http.StatusOK, items)
}

// writeRecord answers a single-record read or write. A nil record without an
// error counts as absent.
func writeRecord[T any](c *gin.Context, r Resource, rec *T, err error) {
	if err != nil {
		writeError(c, r, err)
		return
	}
	if rec == nil {
		fail(c, http.StatusNotFound, r.Singular+" not found")
		return
	}
	ok(c, http.StatusOK, rec)
}

// writeError classifies err into not-found, constraint violation or an
// unexpected failure.
func writeError(c *gin.Context, r Resource, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		fail(c, http.StatusNotFound, r.Singular+" not found")
		return
	}
	var ce *repo.ConstraintError
	if errors.As(err, &ce) {
		middleware.ObserveConstraintViolation(c, ce.Code)
		middleware.LoggerFrom(c).Warn().Err(ce.Err).Str("code", ce.Code).Msg("constraint violation")
		fail(c, http.StatusBadRequest, constraintPrefix+ce.Code)
		return
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, err.Error())
}
