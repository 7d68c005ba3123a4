// Package validation implements the request gate that runs before every
// catalog handler.
//
// An endpoint declares one shape struct per request part (path parameters,
// query, JSON body) and installs Gate[P, Q, B]() in front of its handler:
//
//	type IDParams struct {
//		validation.Strict
//		ID uint `json:"id" validate:"gt=0"`
//	}
//
//	r.PUT("/categories/:id", validation.Gate[IDParams, validation.None, CategoryBody](), h.UpdateCategory)
//
// Field semantics:
//   - the `json` tag names the key; non-pointer fields are required, pointer
//     fields are optional (an explicit JSON null leaves them nil);
//   - `validate` tags add go-playground/validator rules;
//   - shapes embedding Strict reject keys they do not declare.
//
// Parts are checked in the order params, query, body, and fields in
// declaration order; unrecognized keys are reported after a part's fields.
// Any violation stops the chain with 400 and an ordered JSON array of
// {"message": "..."} entries. Parsed values are stored in the Gin context and
// read back with ParamsOf, QueryOf and BodyOf.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-catalog-backend/internal/http/middleware"
)

// Context keys for parsed parts.
const (
	ctxKeyParams = "validation.params"
	ctxKeyQuery  = "validation.query"
	ctxKeyBody   = "validation.body"
)

// Issue is one entry of a 400 validation response.
type Issue struct {
	Message string `json:"message" example:"name is required"`
}

// Gate builds the validation middleware for the given shapes. It panics if a
// shape is not a struct or declares an unsupported field type, so misdeclared
// routes fail at registration.
func Gate[P, Q, B any]() gin.HandlerFunc {
	ps := mustShape[P]()
	qs := mustShape[Q]()
	bs := mustShape[B]()

	return func(c *gin.Context) {
		if check(c, ps, qs, bs) {
			c.Next()
		}
	}
}

// check validates every declared part and stores the parsed values. It
// reports false after writing the rejection response.
func check(c *gin.Context, ps, qs, bs *shape) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			fail(c, fmt.Errorf("validation: %v", rec))
			ok = false
		}
	}()

	var issues []string

	if !ps.none {
		vals := make(map[string][]string, len(c.Params))
		keys := make([]string, 0, len(c.Params))
		for _, p := range c.Params {
			vals[p.Key] = []string{p.Value}
			keys = append(keys, p.Key)
		}
		v, msgs, err := ps.fromStrings(vals, keys)
		if err != nil {
			fail(c, err)
			return false
		}
		issues = append(issues, msgs...)
		c.Set(ctxKeyParams, v.Interface())
	}

	if !qs.none {
		q := c.Request.URL.Query()
		v, msgs, err := qs.fromStrings(q, sortedKeys(q))
		if err != nil {
			fail(c, err)
			return false
		}
		issues = append(issues, msgs...)
		c.Set(ctxKeyQuery, v.Interface())
	}

	if !bs.none {
		body, err := readBody(c)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": "request body too large"})
				return false
			}
			fail(c, err)
			return false
		}
		v, msgs, err := bs.fromJSON(body)
		switch {
		case errors.Is(err, errMalformedBody):
			// An unreadable body is one issue; params/query issues still count.
			issues = append(issues, errMalformedBody.Error())
		case err != nil:
			fail(c, err)
			return false
		default:
			issues = append(issues, msgs...)
			c.Set(ctxKeyBody, v.Interface())
		}
	}

	if len(issues) > 0 {
		reject(c, issues)
		return false
	}
	return true
}

// ParamsOf returns the path parameters parsed by Gate.
func ParamsOf[P any](c *gin.Context) P { return valueOf[P](c, ctxKeyParams) }

// QueryOf returns the query parsed by Gate.
func QueryOf[Q any](c *gin.Context) Q { return valueOf[Q](c, ctxKeyQuery) }

// BodyOf returns the JSON body parsed by Gate.
func BodyOf[B any](c *gin.Context) B { return valueOf[B](c, ctxKeyBody) }

func valueOf[T any](c *gin.Context, key string) T {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		return zero
	}
	return t
}

func mustShape[T any]() *shape {
	s, err := shapeFor[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// readBody drains the request body and restores it for later readers.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// reject answers 400 with one Issue per message, in order.
func reject(c *gin.Context, msgs []string) {
	out := make([]Issue, len(msgs))
	for i, m := range msgs {
		out[i] = Issue{Message: m}
	}
	middleware.ObserveValidationFailure(c, len(out))
	middleware.LoggerFrom(c).Debug().
		Int("violations", len(out)).
		Str("first", msgs[0]).
		Msg("request rejected by validation")
	c.AbortWithStatusJSON(http.StatusBadRequest, out)
}

// fail answers 500 for failures that are not the client's fault.
func fail(c *gin.Context, err error) {
	middleware.LoggerFrom(c).Error().Err(err).Msg("request validation failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
}
