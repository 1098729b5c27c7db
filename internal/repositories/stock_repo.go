package repositories

import (
	"context"

	"gekosync/internal/models"
)

type StockRepository interface {
	Upsert(ctx context.Context, stocks []models.Stock) error
}

type stockRepo struct {
	db Database
}

func NewStockRepository(db Database) StockRepository {
	return &stockRepo{db: db}
}

// Upsert keeps one stock snapshot per variant.
func (r *stockRepo) Upsert(ctx context.Context, stocks []models.Stock) error {
	if len(stocks) == 0 {
		return nil
	}

	args := make([]any, 0, len(stocks)*5)
	for _, s := range stocks {
		args = append(args, s.ID, s.VariantID, s.Quantity, s.Available, s.MinOrderQuantity)
	}

	query := `
		INSERT INTO stocks (id, variant_id, quantity, available, min_order_quantity, updated_at)
		VALUES ` + valuesClause(len(stocks), 5, "NOW()") + `
		ON CONFLICT (variant_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, available = EXCLUDED.available,
		    min_order_quantity = EXCLUDED.min_order_quantity, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, args...)
	return err
}
