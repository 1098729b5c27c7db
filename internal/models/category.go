package models

import (
	"time"
)

// Category is a node in the supplier category tree. The ID is a deterministic
// slug derived from the full ancestor path, so identical paths across rows and
// across runs collapse onto the same row.
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Path      string    `json:"path" db:"path"`
	ParentID  *string   `json:"parent_id" db:"parent_id"`
	Level     int       `json:"level" db:"level"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
