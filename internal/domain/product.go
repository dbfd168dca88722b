package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          int64           `json:"id" db:"id"`
	CategoryID  int64           `json:"category_id" db:"category_id"`
	Title       string          `json:"title" db:"title"`
	Subtitle    string          `json:"subtitle" db:"subtitle"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	Rating      decimal.Decimal `json:"rating" db:"rating"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	Created     time.Time       `json:"created" db:"created"`

	// Category is populated by queries that join the categories table.
	Category *Category `json:"category,omitempty" db:"-"`
}

// Category represents a product category
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}
