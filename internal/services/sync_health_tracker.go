package services

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"

	"gekosync/internal/models"
	"gekosync/internal/repositories"

	"github.com/google/uuid"
)

// SyncPhase is the tracker's position in the pipeline state machine:
// CREATED -> FETCHING -> PARSING -> TRANSFORMING -> PERSISTING -> FINALIZING
// -> one of the terminal statuses.
type SyncPhase string

const (
	PhaseCreated      SyncPhase = "created"
	PhaseFetching     SyncPhase = "fetching"
	PhaseParsing      SyncPhase = "parsing"
	PhaseTransforming SyncPhase = "transforming"
	PhasePersisting   SyncPhase = "persisting"
	PhaseFinalizing   SyncPhase = "finalizing"
)

// AlertSender delivers the degraded-run notification. Send failures are the
// sender's to log; the tracker swallows them either way.
type AlertSender interface {
	SendSyncAlert(ctx context.Context, record *models.SyncHealthRecord) error
}

// SyncHealthTracker wraps one run end to end: it persists the audit record at
// start, accumulates errors as they happen, and finalizes the record exactly
// once. None of its methods propagate persistence failures into the pipeline.
type SyncHealthTracker struct {
	repo   repositories.SyncHealthRepository
	alerts AlertSender

	mu     sync.Mutex
	phase  SyncPhase
	record *models.SyncHealthRecord
	done   bool
}

func NewSyncHealthTracker(repo repositories.SyncHealthRepository, alerts AlertSender) *SyncHealthTracker {
	return &SyncHealthTracker{repo: repo, alerts: alerts, phase: PhaseCreated}
}

// Begin creates the in_progress audit record.
func (t *SyncHealthTracker) Begin(ctx context.Context, syncType models.SyncType, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.record = &models.SyncHealthRecord{
		ID:             uuid.New(),
		SyncType:       syncType,
		Status:         models.SyncStatusInProgress,
		StartTime:      time.Now().UTC(),
		APIURL:         source,
		ItemsProcessed: map[string]int{},
	}

	if err := t.repo.Create(ctx, t.record); err != nil {
		log.Printf("WARN: failed to persist sync health record %s: %v", t.record.ID, err)
	}
}

// SetPhase advances the state machine; purely informational for logs.
func (t *SyncHealthTracker) SetPhase(phase SyncPhase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = phase
	log.Printf("DEBUG: sync %s entered phase %s", t.syncID(), phase)
}

// RecordError appends one error detail and persists the updated record.
// It never returns an error; audit bookkeeping must not break the pipeline.
func (t *SyncHealthTracker) RecordError(ctx context.Context, typ models.SyncErrorType, message, errCtx string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.record == nil || t.done {
		log.Printf("WARN: error recorded outside an active sync: [%s] %s (%s)", typ, message, errCtx)
		return
	}

	t.record.Errors = append(t.record.Errors, models.SyncError{
		Type:      typ,
		Message:   message,
		Context:   errCtx,
		Timestamp: time.Now().UTC(),
	})
	t.record.ErrorCount = len(t.record.Errors)

	if err := t.repo.Update(ctx, t.record); err != nil {
		log.Printf("WARN: failed to persist sync error for %s: %v", t.record.ID, err)
	}
}

// ErrorCount reports how many errors the run has accumulated so far.
func (t *SyncHealthTracker) ErrorCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.record == nil {
		return 0
	}
	return t.record.ErrorCount
}

// Finish stamps the terminal status, persists the final record and fires the
// alert email for degraded outcomes. Calling it twice is a logged no-op.
func (t *SyncHealthTracker) Finish(ctx context.Context, status models.SyncStatus, bytesProcessed int64, items map[string]int) {
	t.mu.Lock()

	if t.record == nil || t.done {
		t.mu.Unlock()
		log.Printf("WARN: Finish called with no active sync")
		return
	}
	t.done = true
	t.phase = PhaseFinalizing

	now := time.Now().UTC()
	duration := now.Sub(t.record.StartTime).Seconds()
	t.record.Status = status
	t.record.EndTime = &now
	t.record.DurationSeconds = &duration
	t.record.RequestSizeBytes = bytesProcessed
	if items != nil {
		t.record.ItemsProcessed = items
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	t.record.MemoryUsageMB = float64(memStats.Alloc) / 1024 / 1024

	record := t.record
	t.mu.Unlock()

	if err := t.repo.Update(ctx, record); err != nil {
		log.Printf("WARN: failed to finalize sync health record %s: %v", record.ID, err)
	}

	log.Printf("Sync %s finished: status=%s duration=%.2fs errors=%d", record.ID, status, duration, record.ErrorCount)

	if status != models.SyncStatusSuccess && t.alerts != nil {
		if err := t.alerts.SendSyncAlert(ctx, record); err != nil {
			log.Printf("WARN: failed to send sync alert for %s: %v", record.ID, err)
		}
	}
}

// Record returns the current audit record for reporting.
func (t *SyncHealthTracker) Record() *models.SyncHealthRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}

func (t *SyncHealthTracker) syncID() string {
	if t.record == nil {
		return "unstarted"
	}
	return t.record.ID.String()
}
