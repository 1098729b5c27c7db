package geko

import (
	"context"
	"fmt"
	"log"
	"time"

	"gekosync/internal/models"
	"gekosync/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Mode selects how product rows are written.
type Mode string

const (
	// ModeFull blind-upserts every row.
	ModeFull Mode = "full"
	// ModeIncremental diffs incoming products against existing natural keys
	// and classifies each as inserted, updated or skipped.
	ModeIncremental Mode = "incremental"
)

const (
	// DefaultBatchSize is the row count per insert statement.
	DefaultBatchSize = 500
	maxTxAttempts    = 3
	retryBaseDelay   = 500 * time.Millisecond
)

// ErrorRecorder receives per-batch failures; the sync health tracker
// implements it.
type ErrorRecorder interface {
	RecordError(ctx context.Context, typ models.SyncErrorType, message, context string)
}

// TxBeginner is satisfied by *pgxpool.Pool and by pgxmock pools.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PersistResult aggregates what one run wrote.
type PersistResult struct {
	Items    map[string]int
	Inserted int
	Updated  int
	Skipped  int
}

// TotalPersisted sums the per-entity counters; zero means the run wrote
// nothing and must be classified as failed.
func (r *PersistResult) TotalPersisted() int {
	total := 0
	for _, n := range r.Items {
		total += n
	}
	return total
}

// Persister executes one transaction per run, writing entity batches in
// strict FK dependency order. A failed batch rolls back to its savepoint and
// is reported, but the run continues; only transaction-level failures abort,
// and those are retried with exponential backoff before the run is failed.
type Persister struct {
	db        TxBeginner
	recorder  ErrorRecorder
	batchSize int
}

func NewPersister(db TxBeginner, recorder ErrorRecorder) *Persister {
	return &Persister{db: db, recorder: recorder, batchSize: DefaultBatchSize}
}

func (p *Persister) Persist(ctx context.Context, batch *TransformResult, mode Mode) (*PersistResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		result, err := p.persistOnce(ctx, batch, mode)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("WARN: persist attempt %d/%d failed: %v", attempt, maxTxAttempts, err)
		if attempt < maxTxAttempts {
			select {
			case <-time.After(retryBaseDelay * (1 << (attempt - 1))):
			case <-ctx.Done():
				return nil, &TransactionError{Attempts: attempt, Err: ctx.Err()}
			}
		}
	}
	return nil, &TransactionError{Attempts: maxTxAttempts, Err: lastErr}
}

func (p *Persister) persistOnce(ctx context.Context, batch *TransformResult, mode Mode) (*PersistResult, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result := &PersistResult{Items: make(map[string]int)}
	run := &persistRun{
		persister: p,
		tx:        tx,
		result:    result,
	}

	if err := run.execute(ctx, batch, mode); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// persistRun carries the natural-key -> surrogate-id maps built while walking
// the dependency order. It lives for exactly one transaction attempt.
type persistRun struct {
	persister   *Persister
	tx          pgx.Tx
	result      *PersistResult
	producerIDs map[string]uuid.UUID
	productIDs  map[string]uuid.UUID
	variantIDs  map[string]uuid.UUID
}

func (r *persistRun) execute(ctx context.Context, batch *TransformResult, mode Mode) error {
	r.producerIDs = make(map[string]uuid.UUID)
	r.productIDs = make(map[string]uuid.UUID)
	r.variantIDs = make(map[string]uuid.UUID)

	if err := r.persistCategories(ctx, batch.Categories); err != nil {
		return err
	}
	if err := r.persistProducers(ctx, batch.Producers); err != nil {
		return err
	}
	if err := r.persistUnits(ctx, batch.Units); err != nil {
		return err
	}
	if err := r.persistProducts(ctx, batch.Products, mode); err != nil {
		return err
	}
	if err := r.persistVariants(ctx, batch.Variants); err != nil {
		return err
	}
	if err := r.persistStocks(ctx, batch.Stocks); err != nil {
		return err
	}
	if err := r.persistPrices(ctx, batch.Prices); err != nil {
		return err
	}
	return r.persistImages(ctx, batch.Images)
}

func (r *persistRun) persistCategories(ctx context.Context, categories []models.Category) error {
	repo := repositories.NewCategoryRepository(r.tx)
	return forEachBatch(len(categories), r.persister.batchSize, func(lo, hi int) error {
		chunk := categories[lo:hi]
		return r.runBatch(ctx, "categories", len(chunk), func() error {
			return repo.Upsert(ctx, chunk)
		})
	})
}

func (r *persistRun) persistProducers(ctx context.Context, names []string) error {
	repo := repositories.NewProducerRepository(r.tx)
	return forEachBatch(len(names), r.persister.batchSize, func(lo, hi int) error {
		chunk := names[lo:hi]
		return r.runBatch(ctx, "producers", len(chunk), func() error {
			ids, err := repo.Upsert(ctx, chunk)
			if err != nil {
				return err
			}
			for name, id := range ids {
				r.producerIDs[name] = id
			}
			return nil
		})
	})
}

func (r *persistRun) persistUnits(ctx context.Context, units []models.Unit) error {
	repo := repositories.NewUnitRepository(r.tx)
	return forEachBatch(len(units), r.persister.batchSize, func(lo, hi int) error {
		chunk := units[lo:hi]
		return r.runBatch(ctx, "units", len(chunk), func() error {
			return repo.Upsert(ctx, chunk)
		})
	})
}

func (r *persistRun) persistProducts(ctx context.Context, pending []PendingProduct, mode Mode) error {
	repo := repositories.NewProductRepository(r.tx)

	var existing map[string]models.Product
	if mode == ModeIncremental {
		codes := make([]string, 0, len(pending))
		for _, p := range pending {
			codes = append(codes, p.Code)
		}
		var err error
		existing, err = repo.GetExistingByCodes(ctx, codes)
		if err != nil {
			return fmt.Errorf("load existing products: %w", err)
		}
	}

	rows := make([]models.Product, 0, len(pending))
	for _, p := range pending {
		row := models.Product{
			ID:               uuid.New(),
			Code:             p.Code,
			Name:             p.Name,
			DescriptionShort: p.DescriptionShort,
			DescriptionLong:  p.DescriptionLong,
			EAN:              p.EAN,
			CategoryID:       p.CategoryID,
			UnitID:           p.UnitID,
			VAT:              p.VAT,
			URL:              p.URL,
		}
		if p.ProducerName != nil {
			if id, ok := r.producerIDs[*p.ProducerName]; ok {
				producerID := id
				row.ProducerID = &producerID
			}
		}

		if mode == ModeIncremental {
			prev, known := existing[p.Code]
			switch {
			case !known:
				r.result.Inserted++
			case productChanged(prev, row):
				r.result.Updated++
			default:
				r.result.Skipped++
				r.productIDs[p.Code] = prev.ID
				continue
			}
		}
		rows = append(rows, row)
	}

	return forEachBatch(len(rows), r.persister.batchSize, func(lo, hi int) error {
		chunk := rows[lo:hi]
		return r.runBatch(ctx, "products", len(chunk), func() error {
			ids, err := repo.Upsert(ctx, chunk)
			if err != nil {
				return err
			}
			for code, id := range ids {
				r.productIDs[code] = id
			}
			return nil
		})
	})
}

func (r *persistRun) persistVariants(ctx context.Context, pending []PendingVariant) error {
	repo := repositories.NewVariantRepository(r.tx)

	rows := make([]models.Variant, 0, len(pending))
	unresolved := 0
	for _, v := range pending {
		productID, ok := r.productIDs[v.ProductCode]
		if !ok {
			unresolved++
			continue
		}
		rows = append(rows, models.Variant{
			ID:          uuid.New(),
			Code:        v.Code,
			ProductID:   productID,
			Weight:      v.Weight,
			GrossWeight: v.GrossWeight,
		})
	}
	r.reportUnresolved(ctx, "variants", "product", unresolved)

	return forEachBatch(len(rows), r.persister.batchSize, func(lo, hi int) error {
		chunk := rows[lo:hi]
		return r.runBatch(ctx, "variants", len(chunk), func() error {
			ids, err := repo.Upsert(ctx, chunk)
			if err != nil {
				return err
			}
			for code, id := range ids {
				r.variantIDs[code] = id
			}
			return nil
		})
	})
}

func (r *persistRun) persistStocks(ctx context.Context, pending []PendingStock) error {
	repo := repositories.NewStockRepository(r.tx)

	rows := make([]models.Stock, 0, len(pending))
	unresolved := 0
	for _, s := range pending {
		variantID, ok := r.variantIDs[s.VariantCode]
		if !ok {
			unresolved++
			continue
		}
		rows = append(rows, models.Stock{
			ID:               uuid.New(),
			VariantID:        variantID,
			Quantity:         s.Quantity,
			Available:        s.Available,
			MinOrderQuantity: s.MinOrderQuantity,
		})
	}
	r.reportUnresolved(ctx, "stocks", "variant", unresolved)

	return forEachBatch(len(rows), r.persister.batchSize, func(lo, hi int) error {
		chunk := rows[lo:hi]
		return r.runBatch(ctx, "stocks", len(chunk), func() error {
			return repo.Upsert(ctx, chunk)
		})
	})
}

func (r *persistRun) persistPrices(ctx context.Context, pending []PendingPrice) error {
	repo := repositories.NewPriceRepository(r.tx)

	rows := make([]models.Price, 0, len(pending))
	unresolved := 0
	for _, p := range pending {
		variantID, ok := r.variantIDs[p.VariantCode]
		if !ok {
			unresolved++
			continue
		}
		rows = append(rows, models.Price{
			ID:         uuid.New(),
			VariantID:  variantID,
			GrossPrice: p.GrossPrice,
			NetPrice:   p.NetPrice,
			SRPGross:   p.SRPGross,
			SRPNet:     p.SRPNet,
		})
	}
	r.reportUnresolved(ctx, "prices", "variant", unresolved)

	return forEachBatch(len(rows), r.persister.batchSize, func(lo, hi int) error {
		chunk := rows[lo:hi]
		return r.runBatch(ctx, "prices", len(chunk), func() error {
			return repo.Upsert(ctx, chunk)
		})
	})
}

func (r *persistRun) persistImages(ctx context.Context, pending []PendingImage) error {
	repo := repositories.NewImageRepository(r.tx)

	rows := make([]models.Image, 0, len(pending))
	unresolved := 0
	for _, img := range pending {
		productID, ok := r.productIDs[img.ProductCode]
		if !ok {
			unresolved++
			continue
		}
		rows = append(rows, models.Image{
			ID:        uuid.New(),
			ProductID: productID,
			URL:       img.URL,
			IsMain:    img.IsMain,
			SortOrder: img.SortOrder,
		})
	}
	r.reportUnresolved(ctx, "images", "product", unresolved)

	return forEachBatch(len(rows), r.persister.batchSize, func(lo, hi int) error {
		chunk := rows[lo:hi]
		return r.runBatch(ctx, "images", len(chunk), func() error {
			return repo.Upsert(ctx, chunk)
		})
	})
}

// runBatch wraps one batch write in a savepoint. A failed batch rolls back
// only itself, is reported, and the run continues; a broken savepoint
// protocol is a transaction-level failure and aborts.
func (r *persistRun) runBatch(ctx context.Context, entity string, count int, fn func() error) error {
	if count == 0 {
		return nil
	}

	if _, err := r.tx.Exec(ctx, "SAVEPOINT batch_write"); err != nil {
		return fmt.Errorf("savepoint for %s: %w", entity, err)
	}

	if err := fn(); err != nil {
		if _, rbErr := r.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT batch_write"); rbErr != nil {
			return fmt.Errorf("rollback %s batch: %w", entity, rbErr)
		}
		log.Printf("WARN: %s batch of %d failed: %v", entity, count, err)
		if r.persister.recorder != nil {
			r.persister.recorder.RecordError(ctx, models.SyncErrorPersistence,
				fmt.Sprintf("batch of %d failed: %v", count, err), entity)
		}
		return nil
	}

	if _, err := r.tx.Exec(ctx, "RELEASE SAVEPOINT batch_write"); err != nil {
		return fmt.Errorf("release savepoint for %s: %w", entity, err)
	}
	r.result.Items[entity] += count
	return nil
}

func (r *persistRun) reportUnresolved(ctx context.Context, entity, parent string, count int) {
	if count == 0 {
		return
	}
	log.Printf("WARN: %d %s skipped: %s not persisted", count, entity, parent)
	if r.persister.recorder != nil {
		r.persister.recorder.RecordError(ctx, models.SyncErrorPersistence,
			fmt.Sprintf("%d rows skipped: parent %s missing", count, parent), entity)
	}
}

func forEachBatch(total, size int, fn func(lo, hi int) error) error {
	for lo := 0; lo < total; lo += size {
		hi := lo + size
		if hi > total {
			hi = total
		}
		if err := fn(lo, hi); err != nil {
			return err
		}
	}
	return nil
}

// productChanged compares the fields a sync is allowed to touch; timestamps
// and surrogate ids are ignored.
func productChanged(prev, next models.Product) bool {
	return prev.Name != next.Name ||
		!eqStrPtr(prev.DescriptionShort, next.DescriptionShort) ||
		!eqStrPtr(prev.DescriptionLong, next.DescriptionLong) ||
		!eqStrPtr(prev.EAN, next.EAN) ||
		!eqStrPtr(prev.CategoryID, next.CategoryID) ||
		!eqStrPtr(prev.UnitID, next.UnitID) ||
		!eqFloatPtr(prev.VAT, next.VAT) ||
		!eqStrPtr(prev.URL, next.URL)
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
