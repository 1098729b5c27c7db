package models

import (
	"time"

	"github.com/google/uuid"
)

// Producer is the product manufacturer. Name is the unique natural key.
type Producer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
