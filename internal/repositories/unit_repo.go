package repositories

import (
	"context"

	"gekosync/internal/models"
)

type UnitRepository interface {
	Upsert(ctx context.Context, units []models.Unit) error
}

type unitRepo struct {
	db Database
}

func NewUnitRepository(db Database) UnitRepository {
	return &unitRepo{db: db}
}

func (r *unitRepo) Upsert(ctx context.Context, units []models.Unit) error {
	if len(units) == 0 {
		return nil
	}

	args := make([]any, 0, len(units)*3)
	for _, u := range units {
		args = append(args, u.ID, u.Name, u.MOQ)
	}

	query := `
		INSERT INTO units (id, name, moq, created_at, updated_at)
		VALUES ` + timestampedValues(len(units), 3) + `
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, moq = EXCLUDED.moq, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, args...)
	return err
}
