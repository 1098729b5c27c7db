package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is one supplier catalog entry. Code is the unique natural key used
// as the upsert target across sync runs.
type Product struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Code             string     `json:"code" db:"code"`
	Name             string     `json:"name" db:"name"`
	DescriptionShort *string    `json:"description_short" db:"description_short"`
	DescriptionLong  *string    `json:"description_long" db:"description_long"`
	EAN              *string    `json:"ean" db:"ean"`
	CategoryID       *string    `json:"category_id" db:"category_id"`
	ProducerID       *uuid.UUID `json:"producer_id" db:"producer_id"`
	UnitID           *string    `json:"unit_id" db:"unit_id"`
	VAT              *float64   `json:"vat" db:"vat"`
	URL              *string    `json:"url" db:"url"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
