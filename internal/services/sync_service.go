package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gekosync/internal/caching"
	"gekosync/internal/geko"
	"gekosync/internal/models"
	"gekosync/internal/repositories"

	"github.com/google/uuid"
)

// CatalogFetcher downloads the raw feed; *geko.Fetcher in production.
type CatalogFetcher interface {
	Fetch(ctx context.Context, url string) (string, int64, error)
}

// SnapshotArchiver stores the raw feed body; *ArchiveService in production.
type SnapshotArchiver interface {
	StoreSnapshot(ctx context.Context, syncID uuid.UUID, body string) (string, error)
}

// SyncResult is the summary returned to manual-sync callers.
type SyncResult struct {
	SyncID           uuid.UUID         `json:"sync_id"`
	Status           models.SyncStatus `json:"status"`
	DurationSeconds  float64           `json:"duration_seconds"`
	RequestSizeBytes int64             `json:"request_size_bytes"`
	ItemsProcessed   map[string]int    `json:"items_processed"`
	ErrorCount       int               `json:"error_count"`
	Inserted         int               `json:"inserted,omitempty"`
	Updated          int               `json:"updated,omitempty"`
	Skipped          int               `json:"skipped,omitempty"`
}

// SyncService runs the whole pipeline: fetch -> parse -> transform -> persist,
// with the health tracker observing every phase. Both the scheduled path and
// the manual/HTTP path go through Run; there is no second implementation.
type SyncService struct {
	db         geko.TxBeginner
	fetcher    CatalogFetcher
	healthRepo repositories.SyncHealthRepository
	alerts     AlertSender
	archive    SnapshotArchiver
	cache      caching.CacheService
}

func NewSyncService(
	db geko.TxBeginner,
	fetcher CatalogFetcher,
	healthRepo repositories.SyncHealthRepository,
	alerts AlertSender,
	archive SnapshotArchiver,
	cache caching.CacheService,
) *SyncService {
	return &SyncService{
		db:         db,
		fetcher:    fetcher,
		healthRepo: healthRepo,
		alerts:     alerts,
		archive:    archive,
		cache:      cache,
	}
}

// Run executes one synchronous sync. Concurrent manual and scheduled runs are
// not mutually excluded; natural-key upserts keep them duplicate-safe.
func (s *SyncService) Run(ctx context.Context, syncType models.SyncType, url string) (*SyncResult, error) {
	if url == "" {
		return nil, fmt.Errorf("no catalog URL configured")
	}

	tracker := NewSyncHealthTracker(s.healthRepo, s.alerts)
	tracker.Begin(ctx, syncType, url)
	log.Printf("Starting %s sync %s from %s", syncType, tracker.Record().ID, url)

	tracker.SetPhase(PhaseFetching)
	body, size, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		tracker.RecordError(ctx, models.SyncErrorFetch, err.Error(), url)
		tracker.Finish(ctx, models.SyncStatusFailed, 0, nil)
		return s.buildResult(tracker, nil), err
	}

	s.archiveSnapshot(ctx, tracker.Record().ID, body)

	tracker.SetPhase(PhaseParsing)
	catalog, err := geko.Parse(body)
	if err != nil {
		tracker.RecordError(ctx, models.SyncErrorParse, err.Error(), url)
		tracker.Finish(ctx, models.SyncStatusFailed, size, nil)
		return s.buildResult(tracker, nil), err
	}
	log.Printf("DEBUG: parsed %d products under <%s> wrapper", len(catalog.Products), catalog.Root)

	tracker.SetPhase(PhaseTransforming)
	batch := geko.NewTransformer().Transform(catalog.Products)
	for _, te := range batch.Errors {
		tracker.RecordError(ctx, te.Type, te.Message, te.Context)
	}

	tracker.SetPhase(PhasePersisting)
	mode := geko.ModeFull
	if syncType == models.SyncTypeIncremental {
		mode = geko.ModeIncremental
	}
	persisted, err := geko.NewPersister(s.db, tracker).Persist(ctx, batch, mode)
	if err != nil {
		tracker.RecordError(ctx, models.SyncErrorTransaction, err.Error(), "persist")
		tracker.Finish(ctx, models.SyncStatusFailed, size, nil)
		return s.buildResult(tracker, nil), err
	}

	status := classifyOutcome(persisted.TotalPersisted(), tracker.ErrorCount())
	tracker.Finish(ctx, status, size, persisted.Items)

	s.cacheLastSync(ctx, tracker.Record())

	result := s.buildResult(tracker, persisted)
	if status == models.SyncStatusFailed {
		return result, errors.New("sync persisted no items")
	}
	return result, nil
}

// classifyOutcome applies the inherited policy: failed when nothing was
// persisted, partial_success when items landed despite errors, success only
// with a clean run.
func classifyOutcome(persistedItems, errorCount int) models.SyncStatus {
	switch {
	case persistedItems == 0:
		return models.SyncStatusFailed
	case errorCount > 0:
		return models.SyncStatusPartialSuccess
	default:
		return models.SyncStatusSuccess
	}
}

func (s *SyncService) buildResult(tracker *SyncHealthTracker, persisted *geko.PersistResult) *SyncResult {
	record := tracker.Record()
	result := &SyncResult{
		SyncID:           record.ID,
		Status:           record.Status,
		RequestSizeBytes: record.RequestSizeBytes,
		ItemsProcessed:   record.ItemsProcessed,
		ErrorCount:       record.ErrorCount,
	}
	if record.DurationSeconds != nil {
		result.DurationSeconds = *record.DurationSeconds
	}
	if persisted != nil {
		result.Inserted = persisted.Inserted
		result.Updated = persisted.Updated
		result.Skipped = persisted.Skipped
	}
	return result
}

func (s *SyncService) archiveSnapshot(ctx context.Context, syncID uuid.UUID, body string) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.StoreSnapshot(ctx, syncID, body)
	if err != nil {
		log.Printf("WARN: failed to archive feed snapshot for %s: %v", syncID, err)
		return
	}
	log.Printf("DEBUG: archived feed snapshot at %s", key)
}

func (s *SyncService) cacheLastSync(ctx context.Context, record *models.SyncHealthRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetLastSync(ctx, record, 24*time.Hour); err != nil {
		log.Printf("WARN: failed to cache last sync: %v", err)
	}
}
