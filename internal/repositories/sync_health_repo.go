package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gekosync/internal/models"

	"github.com/google/uuid"
)

type SyncHealthRepository interface {
	Create(ctx context.Context, record *models.SyncHealthRecord) error
	Update(ctx context.Context, record *models.SyncHealthRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SyncHealthRecord, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*models.SyncHealthRecord, error)
	Stats(ctx context.Context, start, end time.Time) (*models.SyncHealthStats, error)
}

type syncHealthRepo struct {
	db Database
}

func NewSyncHealthRepository(db Database) SyncHealthRepository {
	return &syncHealthRepo{db: db}
}

func (r *syncHealthRepo) Create(ctx context.Context, record *models.SyncHealthRecord) error {
	items, errs, err := marshalHealthJSON(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sync_health (id, sync_type, status, start_time, end_time, duration_seconds,
		                         api_url, request_size_bytes, items_processed, error_count,
		                         errors, memory_usage_mb)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query, record.ID, record.SyncType, record.Status, record.StartTime,
		record.EndTime, record.DurationSeconds, record.APIURL, record.RequestSizeBytes,
		items, record.ErrorCount, errs, record.MemoryUsageMB)
	return err
}

// Update rewrites the mutable portion of an in-progress record. Finalized
// records are never updated again by the tracker.
func (r *syncHealthRepo) Update(ctx context.Context, record *models.SyncHealthRecord) error {
	items, errs, err := marshalHealthJSON(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE sync_health
		SET status = $1, end_time = $2, duration_seconds = $3, request_size_bytes = $4,
		    items_processed = $5, error_count = $6, errors = $7, memory_usage_mb = $8
		WHERE id = $9
	`
	_, err = r.db.Exec(ctx, query, record.Status, record.EndTime, record.DurationSeconds,
		record.RequestSizeBytes, items, record.ErrorCount, errs, record.MemoryUsageMB, record.ID)
	return err
}

func (r *syncHealthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncHealthRecord, error) {
	query := selectHealthColumns + ` WHERE id = $1`
	return scanHealthRow(r.db.QueryRow(ctx, query, id))
}

func (r *syncHealthRepo) ListRecent(ctx context.Context, limit, offset int) ([]*models.SyncHealthRecord, error) {
	query := selectHealthColumns + `
		ORDER BY start_time DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.SyncHealthRecord
	for rows.Next() {
		record, err := scanHealthRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *syncHealthRepo) Stats(ctx context.Context, start, end time.Time) (*models.SyncHealthStats, error) {
	stats := &models.SyncHealthStats{}
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'success'),
		       COUNT(*) FILTER (WHERE status = 'partial_success'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COUNT(*) FILTER (WHERE status = 'in_progress'),
		       COALESCE(SUM(error_count), 0),
		       AVG(duration_seconds)
		FROM sync_health
		WHERE start_time >= $1 AND start_time < $2
	`
	err := r.db.QueryRow(ctx, query, start, end).Scan(&stats.TotalRuns, &stats.SuccessCount,
		&stats.PartialCount, &stats.FailedCount, &stats.InProgressCount, &stats.TotalErrors,
		&stats.AvgDurationSeconds)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

const selectHealthColumns = `
	SELECT id, sync_type, status, start_time, end_time, duration_seconds,
	       api_url, request_size_bytes, items_processed, error_count,
	       errors, memory_usage_mb
	FROM sync_health`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHealthRow(row rowScanner) (*models.SyncHealthRecord, error) {
	record := &models.SyncHealthRecord{}
	var items, errs []byte
	err := row.Scan(&record.ID, &record.SyncType, &record.Status, &record.StartTime,
		&record.EndTime, &record.DurationSeconds, &record.APIURL, &record.RequestSizeBytes,
		&items, &record.ErrorCount, &errs, &record.MemoryUsageMB)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &record.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("decode items_processed: %w", err)
		}
	}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &record.Errors); err != nil {
			return nil, fmt.Errorf("decode errors: %w", err)
		}
	}
	return record, nil
}

func marshalHealthJSON(record *models.SyncHealthRecord) (items, errs []byte, err error) {
	itemsMap := record.ItemsProcessed
	if itemsMap == nil {
		itemsMap = map[string]int{}
	}
	items, err = json.Marshal(itemsMap)
	if err != nil {
		return nil, nil, fmt.Errorf("encode items_processed: %w", err)
	}

	errorList := record.Errors
	if errorList == nil {
		errorList = []models.SyncError{}
	}
	errs, err = json.Marshal(errorList)
	if err != nil {
		return nil, nil, fmt.Errorf("encode errors: %w", err)
	}
	return items, errs, nil
}
