package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishavT/iitmdocs/internal/config"
	"github.com/RishavT/iitmdocs/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testJob(id string, created time.Time) *model.Job {
	return &model.Job{
		ID:        id,
		Filename:  "logs.csv",
		Status:    model.JobRunning,
		Message:   "Starting analysis...",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGetJob", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Second)

		require.NoError(t, s.SaveJob(ctx, testJob("abcd1234", now)))

		got, err := s.GetJob(ctx, "abcd1234")
		require.NoError(t, err)
		assert.Equal(t, "abcd1234", got.ID)
		assert.Equal(t, "logs.csv", got.Filename)
		assert.Equal(t, model.JobRunning, got.Status)
		assert.Equal(t, "Starting analysis...", got.Message)
		assert.Nil(t, got.Result)
		assert.Nil(t, got.Error)
		assert.True(t, now.Equal(got.CreatedAt))
	})

	t.Run("SaveJobUpserts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Second)

		job := testJob("j1", now)
		require.NoError(t, s.SaveJob(ctx, job))

		job.Status = model.JobCompleted
		job.Progress = 100
		job.Message = "Analysis complete!"
		job.Result = &model.Summary{Total: 8, Valid: 5, Invalid: 3, InvalidReasons: map[string]int{"greeting": 2}}
		job.UpdatedAt = now.Add(time.Minute)
		require.NoError(t, s.SaveJob(ctx, job))

		got, err := s.GetJob(ctx, "j1")
		require.NoError(t, err)
		assert.Equal(t, model.JobCompleted, got.Status)
		assert.Equal(t, 100, got.Progress)
		require.NotNil(t, got.Result)
		assert.Equal(t, 8, got.Result.Total)
		assert.Equal(t, 2, got.Result.InvalidReasons["greeting"])
	})

	t.Run("SaveJobWithError", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		job := testJob("j2", time.Now().UTC())
		msg := "boom"
		job.Status = model.JobError
		job.Error = &msg
		require.NoError(t, s.SaveJob(ctx, job))

		got, err := s.GetJob(ctx, "j2")
		require.NoError(t, err)
		require.NotNil(t, got.Error)
		assert.Equal(t, "boom", *got.Error)
	})

	t.Run("GetJobNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetJob(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListJobs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Second)

		for i, id := range []string{"a", "b", "c"} {
			job := testJob(id, base.Add(time.Duration(i)*time.Minute))
			if id == "b" {
				job.Status = model.JobCompleted
			}
			require.NoError(t, s.SaveJob(ctx, job))
		}

		all, err := s.ListJobs(ctx, model.JobFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "c", all[0].ID)
		assert.Equal(t, "a", all[2].ID)

		done, err := s.ListJobs(ctx, model.JobFilter{Status: model.JobCompleted})
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, "b", done[0].ID)

		page, err := s.ListJobs(ctx, model.JobFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "b", page[0].ID)
	})

	t.Run("DeleteJobsBefore", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Second)

		require.NoError(t, s.SaveJob(ctx, testJob("old", base.Add(-2*time.Hour))))
		require.NoError(t, s.SaveJob(ctx, testJob("new", base)))

		n, err := s.DeleteJobsBefore(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = s.GetJob(ctx, "old")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetJob(ctx, "new")
		assert.NoError(t, err)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestNewNone(t *testing.T) {
	s, err := New(context.Background(), config.StoreConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(context.Background(), config.StoreConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewSQLiteMigrates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "jobs.db")
	s, err := New(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close() //nolint:errcheck

	jobs, err := s.ListJobs(context.Background(), model.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
