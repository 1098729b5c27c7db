package models

import (
	"time"

	"github.com/google/uuid"
)

// Variant is a sellable variation of a product. Every product has at least
// one; when the feed carries none, a default variant is synthesized with
// code "<productCode>-DEFAULT".
type Variant struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	Weight      *float64  `json:"weight" db:"weight"`
	GrossWeight *float64  `json:"gross_weight" db:"gross_weight"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Stock holds the availability snapshot for one variant.
type Stock struct {
	ID               uuid.UUID `json:"id" db:"id"`
	VariantID        uuid.UUID `json:"variant_id" db:"variant_id"`
	Quantity         float64   `json:"quantity" db:"quantity"`
	Available        bool      `json:"available" db:"available"`
	MinOrderQuantity *float64  `json:"min_order_quantity" db:"min_order_quantity"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Price holds wholesale and suggested retail prices for one variant. Net
// values are derived from gross and the product VAT percentage.
type Price struct {
	ID         uuid.UUID `json:"id" db:"id"`
	VariantID  uuid.UUID `json:"variant_id" db:"variant_id"`
	GrossPrice *float64  `json:"gross_price" db:"gross_price"`
	NetPrice   *float64  `json:"net_price" db:"net_price"`
	SRPGross   *float64  `json:"srp_gross" db:"srp_gross"`
	SRPNet     *float64  `json:"srp_net" db:"srp_net"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
