package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is a product photo reference.
type Image struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	URL       string    `json:"url" db:"url"`
	IsMain    bool      `json:"is_main" db:"is_main"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
