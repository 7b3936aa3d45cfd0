package types

import "time"

// Category groups catalogue entries. Names are unique.
type Category struct {
	ID           string `json:"id" db:"id"`
	CategoryName string `json:"category_name" db:"category_name"`
	Description  string `json:"description" db:"description"`

	// ParentCategoryID references another category; empty for top-level categories.
	ParentCategoryID   string `json:"parent_category_id,omitempty" db:"parent_category_id"`
	ParentCategoryName string `json:"parent_category_name,omitempty" db:"parent_category_name"`

	IsActive  bool      `json:"isactive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
