package repositories

import (
	"context"

	"gekosync/internal/models"
)

type CategoryRepository interface {
	Upsert(ctx context.Context, categories []models.Category) error
	GetByID(ctx context.Context, id string) (*models.Category, error)
}

type categoryRepo struct {
	db Database
}

func NewCategoryRepository(db Database) CategoryRepository {
	return &categoryRepo{db: db}
}

// Upsert writes one batch of category rows keyed on the deterministic slug id.
// Callers must order parents before children; the FK on parent_id is deferred
// to the batch, not to the statement.
func (r *categoryRepo) Upsert(ctx context.Context, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}

	args := make([]any, 0, len(categories)*5)
	for _, c := range categories {
		args = append(args, c.ID, c.Name, c.Path, c.ParentID, c.Level)
	}

	query := `
		INSERT INTO categories (id, name, path, parent_id, level, created_at, updated_at)
		VALUES ` + timestampedValues(len(categories), 5) + `
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, path = EXCLUDED.path, parent_id = EXCLUDED.parent_id,
		    level = EXCLUDED.level, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, args...)
	return err
}

func (r *categoryRepo) GetByID(ctx context.Context, id string) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, name, path, parent_id, level, created_at, updated_at
		FROM categories
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&category.ID, &category.Name, &category.Path,
		&category.ParentID, &category.Level, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return category, nil
}
