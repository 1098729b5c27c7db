package repositories

import (
	"context"

	"github.com/google/uuid"
)

type ProducerRepository interface {
	Upsert(ctx context.Context, names []string) (map[string]uuid.UUID, error)
}

type producerRepo struct {
	db Database
}

func NewProducerRepository(db Database) ProducerRepository {
	return &producerRepo{db: db}
}

// Upsert writes producers keyed on their unique name and returns the
// name -> id map the persister uses to patch pending product rows. The
// conflict branch updates updated_at so RETURNING yields the existing id.
func (r *producerRepo) Upsert(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	args := make([]any, 0, len(names)*2)
	for _, name := range names {
		args = append(args, uuid.New(), name)
	}

	query := `
		INSERT INTO producers (id, name, created_at, updated_at)
		VALUES ` + timestampedValues(len(names), 2) + `
		ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
		RETURNING id, name
	`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, rows.Err()
}
