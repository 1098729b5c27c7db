package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gekosync/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHealthRepo records every repository call in memory.
type fakeHealthRepo struct {
	created   []*models.SyncHealthRecord
	updated   []*models.SyncHealthRecord
	createErr error
	updateErr error
}

func (f *fakeHealthRepo) Create(_ context.Context, record *models.SyncHealthRecord) error {
	copied := *record
	f.created = append(f.created, &copied)
	return f.createErr
}

func (f *fakeHealthRepo) Update(_ context.Context, record *models.SyncHealthRecord) error {
	copied := *record
	f.updated = append(f.updated, &copied)
	return f.updateErr
}

func (f *fakeHealthRepo) GetByID(context.Context, uuid.UUID) (*models.SyncHealthRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHealthRepo) ListRecent(context.Context, int, int) ([]*models.SyncHealthRecord, error) {
	return nil, nil
}

func (f *fakeHealthRepo) Stats(context.Context, time.Time, time.Time) (*models.SyncHealthStats, error) {
	return nil, nil
}

type fakeAlertSender struct {
	sent    []*models.SyncHealthRecord
	sendErr error
}

func (f *fakeAlertSender) SendSyncAlert(_ context.Context, record *models.SyncHealthRecord) error {
	f.sent = append(f.sent, record)
	return f.sendErr
}

func TestTracker_BeginCreatesInProgressRecord(t *testing.T) {
	repo := &fakeHealthRepo{}
	tracker := NewSyncHealthTracker(repo, nil)

	tracker.Begin(context.Background(), models.SyncTypeManual, "https://feeds.example.com/geko.xml")

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, models.SyncStatusInProgress, created.Status)
	assert.Equal(t, models.SyncTypeManual, created.SyncType)
	assert.Equal(t, "https://feeds.example.com/geko.xml", created.APIURL)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Nil(t, created.EndTime)
}

func TestTracker_RecordErrorAccumulatesAndPersists(t *testing.T) {
	repo := &fakeHealthRepo{}
	tracker := NewSyncHealthTracker(repo, nil)
	tracker.Begin(context.Background(), models.SyncTypeScheduled, "")

	tracker.RecordError(context.Background(), models.SyncErrorValidation, "invalid EAN", "P1")
	tracker.RecordError(context.Background(), models.SyncErrorPersistence, "batch failed", "products")

	assert.Equal(t, 2, tracker.ErrorCount())
	require.Len(t, repo.updated, 2)
	assert.Equal(t, 1, repo.updated[0].ErrorCount)
	assert.Equal(t, 2, repo.updated[1].ErrorCount)
	assert.Equal(t, models.SyncErrorPersistence, repo.updated[1].Errors[1].Type)
}

func TestTracker_RecordErrorBeforeBeginIsIgnored(t *testing.T) {
	repo := &fakeHealthRepo{}
	tracker := NewSyncHealthTracker(repo, nil)

	tracker.RecordError(context.Background(), models.SyncErrorFetch, "no run yet", "")

	assert.Equal(t, 0, tracker.ErrorCount())
	assert.Empty(t, repo.updated)
}

func TestTracker_FinishStampsTerminalState(t *testing.T) {
	repo := &fakeHealthRepo{}
	tracker := NewSyncHealthTracker(repo, nil)
	tracker.Begin(context.Background(), models.SyncTypeManual, "")

	items := map[string]int{"products": 100, "variants": 120}
	tracker.Finish(context.Background(), models.SyncStatusSuccess, 4096, items)

	require.Len(t, repo.updated, 1)
	final := repo.updated[0]
	assert.Equal(t, models.SyncStatusSuccess, final.Status)
	require.NotNil(t, final.EndTime)
	require.NotNil(t, final.DurationSeconds)
	assert.GreaterOrEqual(t, *final.DurationSeconds, 0.0)
	assert.Equal(t, int64(4096), final.RequestSizeBytes)
	assert.Equal(t, items, final.ItemsProcessed)
	assert.Greater(t, final.MemoryUsageMB, 0.0)
}

func TestTracker_FinishTwiceUpdatesOnce(t *testing.T) {
	repo := &fakeHealthRepo{}
	tracker := NewSyncHealthTracker(repo, nil)
	tracker.Begin(context.Background(), models.SyncTypeManual, "")

	tracker.Finish(context.Background(), models.SyncStatusFailed, 0, nil)
	tracker.Finish(context.Background(), models.SyncStatusSuccess, 0, nil)

	require.Len(t, repo.updated, 1)
	assert.Equal(t, models.SyncStatusFailed, repo.updated[0].Status)
}

func TestTracker_ErrorsAfterFinishAreDropped(t *testing.T) {
	repo := &fakeHealthRepo{}
	tracker := NewSyncHealthTracker(repo, nil)
	tracker.Begin(context.Background(), models.SyncTypeManual, "")
	tracker.Finish(context.Background(), models.SyncStatusSuccess, 0, nil)

	tracker.RecordError(context.Background(), models.SyncErrorScheduling, "late", "")

	require.Len(t, repo.updated, 1, "finalized records are read-only")
}

func TestTracker_DegradedRunFiresAlert(t *testing.T) {
	repo := &fakeHealthRepo{}
	alerts := &fakeAlertSender{}
	tracker := NewSyncHealthTracker(repo, alerts)
	tracker.Begin(context.Background(), models.SyncTypeScheduled, "")

	tracker.Finish(context.Background(), models.SyncStatusPartialSuccess, 0, nil)

	require.Len(t, alerts.sent, 1)
	assert.Equal(t, models.SyncStatusPartialSuccess, alerts.sent[0].Status)
}

func TestTracker_SuccessfulRunSendsNoAlert(t *testing.T) {
	repo := &fakeHealthRepo{}
	alerts := &fakeAlertSender{}
	tracker := NewSyncHealthTracker(repo, alerts)
	tracker.Begin(context.Background(), models.SyncTypeScheduled, "")

	tracker.Finish(context.Background(), models.SyncStatusSuccess, 0, nil)

	assert.Empty(t, alerts.sent)
}

func TestTracker_AlertFailureIsSwallowed(t *testing.T) {
	repo := &fakeHealthRepo{}
	alerts := &fakeAlertSender{sendErr: errors.New("smtp unreachable")}
	tracker := NewSyncHealthTracker(repo, alerts)
	tracker.Begin(context.Background(), models.SyncTypeManual, "")

	assert.NotPanics(t, func() {
		tracker.Finish(context.Background(), models.SyncStatusFailed, 0, nil)
	})
	require.Len(t, alerts.sent, 1)
}

func TestTracker_RepositoryFailuresNeverPropagate(t *testing.T) {
	repo := &fakeHealthRepo{createErr: errors.New("db down"), updateErr: errors.New("db down")}
	tracker := NewSyncHealthTracker(repo, nil)

	assert.NotPanics(t, func() {
		tracker.Begin(context.Background(), models.SyncTypeManual, "")
		tracker.RecordError(context.Background(), models.SyncErrorFetch, "x", "")
		tracker.Finish(context.Background(), models.SyncStatusFailed, 0, nil)
	})
}
