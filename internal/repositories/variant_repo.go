package repositories

import (
	"context"

	"gekosync/internal/models"

	"github.com/google/uuid"
)

type VariantRepository interface {
	Upsert(ctx context.Context, variants []models.Variant) (map[string]uuid.UUID, error)
}

type variantRepo struct {
	db Database
}

func NewVariantRepository(db Database) VariantRepository {
	return &variantRepo{db: db}
}

func (r *variantRepo) Upsert(ctx context.Context, variants []models.Variant) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(variants))
	if len(variants) == 0 {
		return ids, nil
	}

	args := make([]any, 0, len(variants)*5)
	for _, v := range variants {
		args = append(args, v.ID, v.Code, v.ProductID, v.Weight, v.GrossWeight)
	}

	query := `
		INSERT INTO variants (id, code, product_id, weight, gross_weight, created_at, updated_at)
		VALUES ` + timestampedValues(len(variants), 5) + `
		ON CONFLICT (code) DO UPDATE
		SET product_id = EXCLUDED.product_id, weight = EXCLUDED.weight,
		    gross_weight = EXCLUDED.gross_weight, updated_at = NOW()
		RETURNING id, code
	`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		ids[code] = id
	}
	return ids, rows.Err()
}
