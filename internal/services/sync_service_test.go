package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gekosync/internal/geko"
	"gekosync/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeFetcher struct {
	body    string
	err     error
	lastURL string
	fetched int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, int64, error) {
	f.lastURL = url
	f.fetched++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.body, int64(len(f.body)), nil
}

type fakeArchiver struct {
	snapshots map[uuid.UUID]string
}

func (f *fakeArchiver) StoreSnapshot(_ context.Context, syncID uuid.UUID, body string) (string, error) {
	if f.snapshots == nil {
		f.snapshots = map[uuid.UUID]string{}
	}
	f.snapshots[syncID] = body
	return "syncs/" + syncID.String() + ".xml", nil
}

type fakeCache struct {
	lastSync *models.SyncHealthRecord
}

func (f *fakeCache) SetLastSync(_ context.Context, record *models.SyncHealthRecord, _ time.Duration) error {
	f.lastSync = record
	return nil
}

func (f *fakeCache) GetLastSync(context.Context) (*models.SyncHealthRecord, error) {
	if f.lastSync == nil {
		return nil, errors.New("cache miss")
	}
	return f.lastSync, nil
}

func (f *fakeCache) SetHealthStats(context.Context, string, *models.SyncHealthStats, time.Duration) error {
	return nil
}

func (f *fakeCache) GetHealthStats(context.Context, string) (*models.SyncHealthStats, error) {
	return nil, errors.New("cache miss")
}

func (f *fakeCache) Ping(context.Context) error { return nil }

type SyncServiceTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     *fakeHealthRepo
	alerts   *fakeAlertSender
	fetcher  *fakeFetcher
	archiver *fakeArchiver
	cache    *fakeCache
	ctx      context.Context
}

func (suite *SyncServiceTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = &fakeHealthRepo{}
	suite.alerts = &fakeAlertSender{}
	suite.fetcher = &fakeFetcher{}
	suite.archiver = &fakeArchiver{}
	suite.cache = &fakeCache{}
	suite.ctx = context.Background()
}

func (suite *SyncServiceTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

func (suite *SyncServiceTestSuite) service() *SyncService {
	return NewSyncService(suite.mock, suite.fetcher, suite.repo, suite.alerts, suite.archiver, suite.cache)
}

func (suite *SyncServiceTestSuite) expectSavepointed(fn func()) {
	suite.mock.ExpectExec(`^SAVEPOINT batch_write$`).
		WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
	fn()
	suite.mock.ExpectExec(`^RELEASE SAVEPOINT batch_write$`).
		WillReturnResult(pgxmock.NewResult("RELEASE", 0))
}

func (suite *SyncServiceTestSuite) TestRun_SuccessfulSync() {
	suite.fetcher.body = `<geko><products><product><code>P1</code><name>Drill</name></product></products></geko>`

	suite.mock.ExpectBegin()
	suite.expectSavepointed(func() {
		suite.mock.ExpectQuery(`INSERT INTO products`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "code"}).AddRow(uuid.New(), "P1"))
	})
	suite.expectSavepointed(func() {
		suite.mock.ExpectQuery(`INSERT INTO variants`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "code"}).AddRow(uuid.New(), "P1-DEFAULT"))
	})
	suite.mock.ExpectCommit()

	result, err := suite.service().Run(suite.ctx, models.SyncTypeManual, "https://feeds.example.com/geko.xml")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.SyncStatusSuccess, result.Status)
	assert.Equal(suite.T(), map[string]int{"products": 1, "variants": 1}, result.ItemsProcessed)
	assert.Equal(suite.T(), int64(len(suite.fetcher.body)), result.RequestSizeBytes)
	assert.Zero(suite.T(), result.ErrorCount)

	// Audit trail: one record created, finalized as success.
	require.NotEmpty(suite.T(), suite.repo.created)
	last := suite.repo.updated[len(suite.repo.updated)-1]
	assert.Equal(suite.T(), models.SyncStatusSuccess, last.Status)

	// Raw feed archived under the sync id, outcome cached, no alert.
	assert.Equal(suite.T(), suite.fetcher.body, suite.archiver.snapshots[result.SyncID])
	require.NotNil(suite.T(), suite.cache.lastSync)
	assert.Equal(suite.T(), result.SyncID, suite.cache.lastSync.ID)
	assert.Empty(suite.T(), suite.alerts.sent)

	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SyncServiceTestSuite) TestRun_FetchFailureFailsRun() {
	suite.fetcher.err = &geko.FetchError{URL: "https://feeds.example.com/geko.xml", StatusCode: 502}

	result, err := suite.service().Run(suite.ctx, models.SyncTypeScheduled, "https://feeds.example.com/geko.xml")
	require.Error(suite.T(), err)

	var fetchErr *geko.FetchError
	assert.ErrorAs(suite.T(), err, &fetchErr)
	assert.Equal(suite.T(), models.SyncStatusFailed, result.Status)
	assert.Equal(suite.T(), 1, result.ErrorCount)

	require.Len(suite.T(), suite.alerts.sent, 1, "failed runs alert")
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet(), "no database work on fetch failure")
}

func (suite *SyncServiceTestSuite) TestRun_ParseFailureFailsRun() {
	suite.fetcher.body = `<catalog><item>1</item></catalog>`

	result, err := suite.service().Run(suite.ctx, models.SyncTypeManual, "https://feeds.example.com/geko.xml")
	require.Error(suite.T(), err)

	var parseErr *geko.ParseError
	assert.ErrorAs(suite.T(), err, &parseErr)
	assert.Equal(suite.T(), models.SyncStatusFailed, result.Status)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SyncServiceTestSuite) TestRun_ValidationErrorsYieldPartialSuccess() {
	suite.fetcher.body = `<geko><products>
		<product><name>no code here</name></product>
		<product><code>P1</code></product>
	</products></geko>`

	suite.mock.ExpectBegin()
	suite.expectSavepointed(func() {
		suite.mock.ExpectQuery(`INSERT INTO products`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "code"}).AddRow(uuid.New(), "P1"))
	})
	suite.expectSavepointed(func() {
		suite.mock.ExpectQuery(`INSERT INTO variants`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "code"}).AddRow(uuid.New(), "P1-DEFAULT"))
	})
	suite.mock.ExpectCommit()

	result, err := suite.service().Run(suite.ctx, models.SyncTypeManual, "https://feeds.example.com/geko.xml")
	require.NoError(suite.T(), err, "partial success is not a hard failure")

	assert.Equal(suite.T(), models.SyncStatusPartialSuccess, result.Status)
	assert.Equal(suite.T(), 1, result.ErrorCount)
	require.Len(suite.T(), suite.alerts.sent, 1, "degraded runs alert")
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SyncServiceTestSuite) TestRun_EmptyFeedIsFailed() {
	suite.fetcher.body = `<geko><products></products></geko>`

	suite.mock.ExpectBegin()
	suite.mock.ExpectCommit()

	result, err := suite.service().Run(suite.ctx, models.SyncTypeManual, "https://feeds.example.com/geko.xml")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "no items")
	assert.Equal(suite.T(), models.SyncStatusFailed, result.Status)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SyncServiceTestSuite) TestRun_MissingURLRejected() {
	result, err := suite.service().Run(suite.ctx, models.SyncTypeManual, "")
	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), result)
	assert.Empty(suite.T(), suite.repo.created, "no audit record for a rejected run")
}

func (suite *SyncServiceTestSuite) TestRun_IncrementalUsesDiffQuery() {
	suite.fetcher.body = `<geko><products><product><code>P1</code><name>Drill</name></product></products></geko>`

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT id, code, name`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "code", "name", "description_short", "description_long",
			"ean", "category_id", "producer_id", "unit_id", "vat", "url",
			"created_at", "updated_at",
		}))
	suite.expectSavepointed(func() {
		suite.mock.ExpectQuery(`INSERT INTO products`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "code"}).AddRow(uuid.New(), "P1"))
	})
	suite.expectSavepointed(func() {
		suite.mock.ExpectQuery(`INSERT INTO variants`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "code"}).AddRow(uuid.New(), "P1-DEFAULT"))
	})
	suite.mock.ExpectCommit()

	result, err := suite.service().Run(suite.ctx, models.SyncTypeIncremental, "https://feeds.example.com/geko.xml")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, result.Inserted)
	assert.Zero(suite.T(), result.Updated)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}
