package repositories

import (
	"context"

	"gekosync/internal/models"
)

type PriceRepository interface {
	Upsert(ctx context.Context, prices []models.Price) error
}

type priceRepo struct {
	db Database
}

func NewPriceRepository(db Database) PriceRepository {
	return &priceRepo{db: db}
}

// Upsert keeps one price row per variant; wholesale and retail columns are
// written together since the transformer already folded typed entries.
func (r *priceRepo) Upsert(ctx context.Context, prices []models.Price) error {
	if len(prices) == 0 {
		return nil
	}

	args := make([]any, 0, len(prices)*6)
	for _, p := range prices {
		args = append(args, p.ID, p.VariantID, p.GrossPrice, p.NetPrice, p.SRPGross, p.SRPNet)
	}

	query := `
		INSERT INTO prices (id, variant_id, gross_price, net_price, srp_gross, srp_net, updated_at)
		VALUES ` + valuesClause(len(prices), 6, "NOW()") + `
		ON CONFLICT (variant_id) DO UPDATE
		SET gross_price = EXCLUDED.gross_price, net_price = EXCLUDED.net_price,
		    srp_gross = EXCLUDED.srp_gross, srp_net = EXCLUDED.srp_net, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, args...)
	return err
}
