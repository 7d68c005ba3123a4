// Package domain defines the persistence models for categories and products.
// These types are mapped with GORM and form the core data layer of the
// catalog API.
package domain

import "time"

// Category groups products. A category owns zero or more products; it cannot
// be deleted while products still reference it.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Name: display name, unique across categories.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - Products: only populated when explicitly preloaded.
type Category struct {
	ID        uint      `json:"id"        gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name"      gorm:"type:varchar(255);not null;uniqueIndex:ux_categories_name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Products references this category through Product.CategoryID. Deleting a
	// category that still has products is rejected by the database.
	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// Product is a priced item that belongs to exactly one category.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Name: display name.
//   - Price: optional; stored as NULL when absent.
//   - CategoryID: foreign key to the owning category (indexed).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Product struct {
	ID         uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Name       string    `json:"name"       gorm:"type:varchar(255);not null"`
	Price      *float64  `json:"price"`
	CategoryID uint      `json:"categoryId" gorm:"not null;index:idx_products_category"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// CategoryInput carries the mutable fields of a Category. It is used for both
// creation and full replacement.
type CategoryInput struct {
	Name string
}

// ProductInput carries the mutable fields of a Product. It is used for both
// creation and full replacement, so a nil Price clears the stored price.
type ProductInput struct {
	Name       string
	Price      *float64
	CategoryID uint
}
