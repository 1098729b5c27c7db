package repositories

import (
	"context"

	"gekosync/internal/models"
)

type ImageRepository interface {
	Upsert(ctx context.Context, images []models.Image) error
}

type imageRepo struct {
	db Database
}

func NewImageRepository(db Database) ImageRepository {
	return &imageRepo{db: db}
}

func (r *imageRepo) Upsert(ctx context.Context, images []models.Image) error {
	if len(images) == 0 {
		return nil
	}

	args := make([]any, 0, len(images)*5)
	for _, img := range images {
		args = append(args, img.ID, img.ProductID, img.URL, img.IsMain, img.SortOrder)
	}

	query := `
		INSERT INTO images (id, product_id, url, is_main, sort_order, created_at)
		VALUES ` + valuesClause(len(images), 5, "NOW()") + `
		ON CONFLICT (product_id, url) DO UPDATE
		SET is_main = EXCLUDED.is_main, sort_order = EXCLUDED.sort_order
	`
	_, err := r.db.Exec(ctx, query, args...)
	return err
}
