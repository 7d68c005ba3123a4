// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Product
// model.
//
// Functions mirror the category repository: ListProducts, GetProduct,
// CreateProduct, UpdateProduct and DeleteProduct. A product referencing a
// missing category is rejected by the foreign key and surfaces as a
// *ConstraintError with CodeForeignKeyViolation.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-catalog-backend/internal/domain"
)

// ListProducts returns all products ordered by ID.
func ListProducts(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// GetProduct fetches a product by ID.
func GetProduct(ctx context.Context, db *gorm.DB, id uint) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts a new product.
func CreateProduct(ctx context.Context, db *gorm.DB, in domain.ProductInput) (*domain.Product, error) {
	p := &domain.Product{
		Name:       in.Name,
		Price:      in.Price,
		CategoryID: in.CategoryID,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, classify(err)
	}
	return p, nil
}

// UpdateProduct replaces every mutable field of product id. A nil Price
// clears the stored price.
func UpdateProduct(ctx context.Context, db *gorm.DB, id uint, in domain.ProductInput) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Price = in.Price
	p.CategoryID = in.CategoryID
	if err := db.WithContext(ctx).Omit(clause.Associations).Save(&p).Error; err != nil {
		return nil, classify(err)
	}
	return &p, nil
}

// DeleteProduct removes product id and returns the deleted row.
func DeleteProduct(ctx context.Context, db *gorm.DB, id uint) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	res := db.WithContext(ctx).Delete(&domain.Product{}, "id = ?", id)
	if res.Error != nil {
		return nil, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &p, nil
}
