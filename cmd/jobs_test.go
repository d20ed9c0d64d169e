package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishavT/iitmdocs/internal/model"
	"github.com/RishavT/iitmdocs/internal/store"
)

func TestFormatJobsList(t *testing.T) {
	now := time.Date(2025, 12, 18, 10, 30, 0, 0, time.UTC)
	list := []model.Job{
		{
			ID:        "abc12345",
			Filename:  "staging-logs.csv",
			Status:    model.JobCompleted,
			Progress:  100,
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def67890",
			Filename:  "a-very-long-production-log-export-file-name.xlsx",
			Status:    model.JobRunning,
			Progress:  42,
			CreatedAt: now.Add(-time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatJobsList(&buf, list)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "FILE")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "staging-logs.csv")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "100%")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "a-very-long-production-log-...")
	assert.NotContains(t, output, "export-file-name")
	assert.Contains(t, output, "42%")
	assert.Contains(t, output, "2025-12-18 10:30")
}

func TestShorten(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"logs.csv", 30, "logs.csv"},
		{"abcdefghij", 10, "abcdefghij"},
		{"abcdefghijk", 10, "abcdefg..."},
		{"प्रवेश-लॉग-दिसंबर.csv", 8, "प्रवे..."},
		{"日志日志日志日志日志.csv", 6, "日志日..."},
	}
	for _, tt := range tests {
		got := shorten(tt.in, tt.n)
		assert.Equal(t, tt.want, got, tt.in)
		assert.True(t, utf8.ValidString(got), tt.in)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.n, tt.in)
	}
}

func TestComputeJobStats(t *testing.T) {
	now := time.Date(2025, 12, 18, 10, 0, 0, 0, time.UTC)
	msg := "boom"

	list := []model.Job{
		{ID: "1", Status: model.JobCompleted, CreatedAt: now, UpdatedAt: now.Add(10 * time.Second), Result: &model.Summary{Total: 8}},
		{ID: "2", Status: model.JobCompleted, CreatedAt: now, UpdatedAt: now.Add(30 * time.Second), Result: &model.Summary{Total: 2}},
		{ID: "3", Status: model.JobError, Error: &msg, CreatedAt: now, UpdatedAt: now},
		{ID: "4", Status: model.JobRunning, CreatedAt: now, UpdatedAt: now},
		{ID: "6", Status: model.JobPending, CreatedAt: now, UpdatedAt: now},
		{ID: "5", Status: model.JobCompleted, CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-48 * time.Hour)},
	}

	s := computeJobStats(list, now.Add(-24*time.Hour))
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 10, s.Queries)
	assert.InDelta(t, 20.0, s.AvgDurSecs, 0.001)

	all := computeJobStats(list, time.Time{})
	assert.Equal(t, 6, all.Total)
	assert.Equal(t, 3, all.Completed)
}

func TestFormatJobStats(t *testing.T) {
	var buf bytes.Buffer
	formatJobStats(&buf, jobStats{Total: 4, Completed: 2, Failed: 1, Running: 1, Queries: 10, AvgDurSecs: 20})

	output := buf.String()
	assert.Contains(t, output, "Total jobs:")
	assert.Contains(t, output, "Pending:")
	assert.Contains(t, output, "Queries analyzed:")
	assert.Contains(t, output, "Avg duration:")
	assert.Contains(t, output, "20.0s")

	buf.Reset()
	formatJobStats(&buf, jobStats{})
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestJobsListCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	dsn := filepath.Join(dir, "jobs.db")

	st, err := store.NewSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	now := time.Now().UTC()
	require.NoError(t, st.SaveJob(context.Background(), &model.Job{
		ID: "feed1234", Filename: "logs.csv", Status: model.JobCompleted, Progress: 100,
		Message: "Analysis complete!", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, st.Close())

	t.Setenv("LOGANALYZER_STORE_DRIVER", "sqlite")
	t.Setenv("LOGANALYZER_STORE_DATABASE_URL", dsn)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"jobs", "list"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "feed1234")
	assert.Contains(t, out.String(), "logs.csv")
}
