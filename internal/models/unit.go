package models

import (
	"time"
)

// Unit is a sales unit of measure ("pcs", "kg", ...). The ID is the unit code
// itself, acting as the natural key.
type Unit struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	MOQ       float64   `json:"moq" db:"moq"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
