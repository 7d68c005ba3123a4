// Package services – idempotent creates
//
// createOnce implements the Idempotency-Key contract shared by the category
// and product services: a create carrying a key that was already used in the
// same scope, and whose TTL has not elapsed, returns the entity created the
// first time instead of inserting a new one.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-catalog-backend/internal/repo"
)

// Idempotency scopes, one per collection.
const (
	ScopeCategories = "categories"
	ScopeProducts   = "products"
)

// createOnce runs create inside a transaction. When key is non-empty it first
// consults the idempotency table; a live record whose entity still exists is
// replayed through load. The boolean result reports a replay.
func createOnce[T any](
	ctx context.Context,
	db *gorm.DB,
	scope, key string,
	ttl time.Duration,
	load func(tx *gorm.DB, id uint) (*T, error),
	create func(tx *gorm.DB) (*T, uint, error),
) (*T, bool, error) {
	if key == "" {
		out, _, err := create(db)
		return out, false, err
	}

	var (
		out      *T
		replayed bool
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		rec, err := repo.GetIdempotency(ctx, tx, scope, key, now)
		switch {
		case err == nil:
			prev, lerr := load(tx, rec.EntityID)
			if lerr == nil {
				out, replayed = prev, true
				return nil
			}
			if !errors.Is(lerr, repo.ErrNotFound) {
				return lerr
			}
			// The original entity is gone; the key is free again.
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		// Clear stale (expired or orphaned) records so the unique index admits
		// the new one.
		if err := repo.DeleteIdempotency(ctx, tx, scope, key); err != nil {
			return err
		}

		created, id, err := create(tx)
		if err != nil {
			return err
		}
		if _, err := repo.CreateIdempotency(ctx, tx, scope, key, id, ttl); err != nil {
			return err
		}
		out = created
		return nil
	})

	// A concurrent request with the same key committed first: serve its result.
	if errors.Is(err, repo.ErrDuplicate) {
		rec, gerr := repo.GetIdempotency(ctx, db, scope, key, time.Now().UTC())
		if gerr != nil {
			return nil, false, err
		}
		prev, lerr := load(db, rec.EntityID)
		if lerr != nil {
			return nil, false, lerr
		}
		return prev, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, replayed, nil
}
