// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Category
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a category is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - Constraint violations (duplicate name, category still referenced by
//     products) are returned as *ConstraintError.
//   - Any other DB error is propagated unchanged.
//
// Functions:
//
//   - ListCategories(ctx, db) -> []domain.Category, error
//     Returns every category ordered by ascending ID.
//
//   - GetCategory(ctx, db, id, withProducts) -> *domain.Category, error
//     Fetches one category, optionally preloading its products.
//
//   - CreateCategory(ctx, db, in) -> *domain.Category, error
//     Inserts a new row and returns it with generated ID and timestamps.
//
//   - UpdateCategory(ctx, db, id, in) -> *domain.Category, error
//     Replaces the mutable fields of an existing category.
//
//   - DeleteCategory(ctx, db, id) -> *domain.Category, error
//     Removes a category and returns the row as it was before deletion.
//
// Update and delete read the row first; callers that need both steps to be
// atomic pass a transaction handle (see services.CategoryService).
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-catalog-backend/internal/domain"
)

// ListCategories returns all categories ordered by ID.
func ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var out []domain.Category
	err := db.WithContext(ctx).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// GetCategory fetches a category by ID. When withProducts is true the
// category's products are loaded in ID order.
func GetCategory(ctx context.Context, db *gorm.DB, id uint, withProducts bool) (*domain.Category, error) {
	q := db.WithContext(ctx)
	if withProducts {
		q = q.Preload("Products", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("products.id ASC")
		})
	}
	var c domain.Category
	if err := q.First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if withProducts && c.Products == nil {
		c.Products = []domain.Product{}
	}
	return &c, nil
}

// CreateCategory inserts a new category.
func CreateCategory(ctx context.Context, db *gorm.DB, in domain.CategoryInput) (*domain.Category, error) {
	c := &domain.Category{Name: in.Name}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// UpdateCategory overwrites the name of category id and returns the updated
// row, or ErrNotFound if it does not exist.
func UpdateCategory(ctx context.Context, db *gorm.DB, id uint, in domain.CategoryInput) (*domain.Category, error) {
	var c domain.Category
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	c.Name = in.Name
	if err := db.WithContext(ctx).Omit(clause.Associations).Save(&c).Error; err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

// DeleteCategory removes category id and returns the deleted row, or
// ErrNotFound if it does not exist.
func DeleteCategory(ctx context.Context, db *gorm.DB, id uint) (*domain.Category, error) {
	var c domain.Category
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	res := db.WithContext(ctx).Delete(&domain.Category{}, "id = ?", id)
	if res.Error != nil {
		return nil, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &c, nil
}
