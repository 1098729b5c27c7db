package background

import (
	"context"
	"sync"
	"testing"

	"gekosync/internal/models"
	"gekosync/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu   sync.Mutex
	runs []string
}

func (f *fakeRunner) Run(_ context.Context, _ models.SyncType, url string) (*services.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, url)
	return &services.SyncResult{Status: models.SyncStatusSuccess}, nil
}

func newTestScheduler(t *testing.T) (*JobScheduler, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{}
	js, err := NewJobScheduler(runner)
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Shutdown() })
	return js, runner
}

func TestStartSync_ActivatesSingleSlot(t *testing.T) {
	js, _ := newTestScheduler(t)

	err := js.StartSync("https://feeds.example.com/geko.xml", 15)
	require.NoError(t, err)

	status := js.Status()
	assert.True(t, status.Active)
	assert.Equal(t, "https://feeds.example.com/geko.xml", status.APIURL)
	assert.Equal(t, 15, status.IntervalMinutes)
	assert.Equal(t, "*/15 * * * *", status.CronExpression)
	assert.NotNil(t, status.NextRun)
}

func TestStartSync_ReplacesPreviousJob(t *testing.T) {
	js, _ := newTestScheduler(t)

	require.NoError(t, js.StartSync("https://feeds.example.com/a.xml", 15))
	require.NoError(t, js.StartSync("https://feeds.example.com/b.xml", 5))

	status := js.Status()
	assert.True(t, status.Active)
	assert.Equal(t, "https://feeds.example.com/b.xml", status.APIURL)
	assert.Equal(t, 5, status.IntervalMinutes)
	assert.Equal(t, "*/5 * * * *", status.CronExpression)
}

func TestStartSync_RejectsBadInput(t *testing.T) {
	js, _ := newTestScheduler(t)

	assert.Error(t, js.StartSync("", 15))
	assert.Error(t, js.StartSync("https://feeds.example.com/geko.xml", 0))
	assert.False(t, js.Status().Active)
}

func TestStopSync_IdleIsNoOpSuccess(t *testing.T) {
	js, _ := newTestScheduler(t)

	assert.NoError(t, js.StopSync())
	assert.False(t, js.Status().Active)
}

func TestStopSync_ClearsActiveJob(t *testing.T) {
	js, _ := newTestScheduler(t)

	require.NoError(t, js.StartSync("https://feeds.example.com/geko.xml", 30))
	require.NoError(t, js.StopSync())

	status := js.Status()
	assert.False(t, status.Active)
	assert.Empty(t, status.APIURL)
	assert.Zero(t, status.IntervalMinutes)
}

func TestRunScheduled_DrivesRunnerWithConfiguredURL(t *testing.T) {
	js, runner := newTestScheduler(t)

	require.NoError(t, js.StartSync("https://feeds.example.com/geko.xml", 60))
	js.runScheduled()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.runs, 1)
	assert.Equal(t, "https://feeds.example.com/geko.xml", runner.runs[0])
}

func TestRunScheduled_NoURLIsNoOp(t *testing.T) {
	js, runner := newTestScheduler(t)

	js.runScheduled()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Empty(t, runner.runs)
}
