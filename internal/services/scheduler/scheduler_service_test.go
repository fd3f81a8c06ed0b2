package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/storage/sqlite"
)

// fakeClock is advanced manually by tests
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, storage *sqlite.JobSettingsStorage) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	var svc *Service
	if storage != nil {
		svc = NewService(storage, time.Minute, arbor.NewNoOpLogger())
	} else {
		svc = NewService(nil, time.Minute, arbor.NewNoOpLogger())
	}
	svc.now = clock.Now
	return svc, clock
}

func newJobStorage(t *testing.T) *sqlite.JobSettingsStorage {
	t.Helper()
	db, err := sqlite.NewSQLiteDB(arbor.NewNoOpLogger(), &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "jobs.db"),
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.NewJobSettingsStorage(db, arbor.NewNoOpLogger())
}

func TestService_RunsDueJobsInRegistrationOrder(t *testing.T) {
	svc, clock := newTestService(t, nil)
	ctx := context.Background()

	var ran []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			ran = append(ran, name)
			return nil
		}
	}

	require.NoError(t, svc.RegisterJob(ctx, "stock_updates", "@every 30m", record("stock_updates")))
	require.NoError(t, svc.RegisterJob(ctx, "news_updates", "@every 15m", record("news_updates")))
	require.NoError(t, svc.RegisterJob(ctx, "full_etl", "30 16 * * *", record("full_etl")))

	assert.Equal(t, 0, svc.RunPending(ctx))

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, svc.RunPending(ctx))
	assert.Equal(t, []string{"news_updates"}, ran)

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 2, svc.RunPending(ctx))
	assert.Equal(t, []string{"news_updates", "stock_updates", "news_updates"}, ran)

	// 16:30 wall-clock trigger
	clock.t = time.Date(2024, 3, 15, 16, 30, 0, 0, time.UTC)
	ran = nil
	svc.RunPending(ctx)
	assert.Equal(t, []string{"stock_updates", "news_updates", "full_etl"}, ran)

	status, err := svc.GetJobStatus("full_etl")
	require.NoError(t, err)
	assert.Equal(t, 1, status.RunCount)
	assert.Equal(t, time.Date(2024, 3, 16, 16, 30, 0, 0, time.UTC), *status.NextRun)
}

func TestService_FailingAndPanickingJobsDoNotStopLoop(t *testing.T) {
	svc, clock := newTestService(t, nil)
	ctx := context.Background()

	okRuns := 0
	require.NoError(t, svc.RegisterJob(ctx, "failing", "@every 1m", func(context.Context) error {
		return errors.New("provider down")
	}))
	require.NoError(t, svc.RegisterJob(ctx, "panicking", "@every 1m", func(context.Context) error {
		panic("boom")
	}))
	require.NoError(t, svc.RegisterJob(ctx, "ok", "@every 1m", func(context.Context) error {
		okRuns++
		return nil
	}))

	clock.Advance(time.Minute)
	assert.Equal(t, 3, svc.RunPending(ctx))
	assert.Equal(t, 1, okRuns)

	failing, err := svc.GetJobStatus("failing")
	require.NoError(t, err)
	assert.Equal(t, "provider down", failing.LastError)

	panicking, err := svc.GetJobStatus("panicking")
	require.NoError(t, err)
	assert.Contains(t, panicking.LastError, "boom")
	assert.False(t, panicking.IsRunning)
}

func TestService_RegisterJobValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	assert.Error(t, svc.RegisterJob(ctx, "bad", "every now and then", noop))
	assert.Error(t, svc.RegisterJob(ctx, "empty", "", noop))
	require.NoError(t, svc.RegisterJob(ctx, "job", "@every 1h", noop))
	assert.Error(t, svc.RegisterJob(ctx, "job", "@every 2h", noop))

	_, err := svc.GetJobStatus("missing")
	assert.Error(t, err)
	assert.Len(t, svc.GetAllJobStatuses(), 1)
}

func TestService_PersistsAndRestoresJobState(t *testing.T) {
	storage := newJobStorage(t)
	ctx := context.Background()

	svc, clock := newTestService(t, storage)
	require.NoError(t, svc.RegisterJob(ctx, "news_updates", "@every 15m", func(context.Context) error {
		return errors.New("rate limited")
	}))
	clock.Advance(15 * time.Minute)
	svc.RunPending(ctx)

	run, err := storage.GetJobRun(ctx, "news_updates")
	require.NoError(t, err)
	assert.Equal(t, 1, run.RunCount)
	assert.Equal(t, "rate limited", run.LastError)
	require.NotNil(t, run.LastRun)
	assert.Equal(t, clock.t.Unix(), run.LastRun.Unix())

	// A restarted scheduler resumes from the persisted last run
	restarted, restartClock := newTestService(t, storage)
	restartClock.t = clock.t.Add(5 * time.Minute)
	require.NoError(t, restarted.RegisterJob(ctx, "news_updates", "@every 15m", func(context.Context) error { return nil }))

	status, err := restarted.GetJobStatus("news_updates")
	require.NoError(t, err)
	assert.Equal(t, 1, status.RunCount)
	assert.Equal(t, clock.t.Add(15*time.Minute).Unix(), status.NextRun.Unix())
}

func TestService_StartStopsOnCancel(t *testing.T) {
	svc := NewService(nil, 10*time.Millisecond, arbor.NewNoOpLogger())
	ctx, cancel := context.WithCancel(context.Background())

	runs := make(chan struct{}, 10)
	require.NoError(t, svc.RegisterJob(ctx, "fast", "@every 1s", func(context.Context) error {
		runs <- struct{}{}
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestService_RunPendingStopsOnCancelledContext(t *testing.T) {
	svc, clock := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	runs := 0
	require.NoError(t, svc.RegisterJob(ctx, "first", "@every 1m", func(context.Context) error {
		runs++
		cancel()
		return nil
	}))
	require.NoError(t, svc.RegisterJob(ctx, "second", "@every 1m", func(context.Context) error {
		runs++
		return nil
	}))

	clock.Advance(time.Minute)
	assert.Equal(t, 1, svc.RunPending(ctx))
	assert.Equal(t, 1, runs)
}
