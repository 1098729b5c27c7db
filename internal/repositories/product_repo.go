package repositories

import (
	"context"

	"gekosync/internal/models"

	"github.com/google/uuid"
)

type ProductRepository interface {
	Upsert(ctx context.Context, products []models.Product) (map[string]uuid.UUID, error)
	GetExistingByCodes(ctx context.Context, codes []string) (map[string]models.Product, error)
}

type productRepo struct {
	db Database
}

func NewProductRepository(db Database) ProductRepository {
	return &productRepo{db: db}
}

// Upsert writes one product batch keyed on the code natural key and returns
// the code -> id map used to resolve variant and image parents.
func (r *productRepo) Upsert(ctx context.Context, products []models.Product) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(products))
	if len(products) == 0 {
		return ids, nil
	}

	args := make([]any, 0, len(products)*11)
	for _, p := range products {
		args = append(args, p.ID, p.Code, p.Name, p.DescriptionShort, p.DescriptionLong,
			p.EAN, p.CategoryID, p.ProducerID, p.UnitID, p.VAT, p.URL)
	}

	query := `
		INSERT INTO products (id, code, name, description_short, description_long,
		                      ean, category_id, producer_id, unit_id, vat, url,
		                      created_at, updated_at)
		VALUES ` + timestampedValues(len(products), 11) + `
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name, description_short = EXCLUDED.description_short,
		    description_long = EXCLUDED.description_long, ean = EXCLUDED.ean,
		    category_id = EXCLUDED.category_id, producer_id = EXCLUDED.producer_id,
		    unit_id = EXCLUDED.unit_id, vat = EXCLUDED.vat, url = EXCLUDED.url,
		    updated_at = NOW()
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

// GetExistingByCodes loads the current state of the given natural keys so the
// incremental persist mode can classify each incoming product as
// inserted/updated/skipped.
func (r *productRepo) GetExistingByCodes(ctx context.Context, codes []string) (map[string]models.Product, error) {
	existing := make(map[string]models.Product, len(codes))
	if len(codes) == 0 {
		return existing, nil
	}

	query := `
		SELECT id, code, name, description_short, description_long,
		       ean, category_id, producer_id, unit_id, vat, url,
		       created_at, updated_at
		FROM products
		WHERE code = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.DescriptionShort, &p.DescriptionLong,
			&p.EAN, &p.CategoryID, &p.ProducerID, &p.UnitID, &p.VAT, &p.URL,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		existing[p.Code] = p
	}
	return existing, rows.Err()
}
