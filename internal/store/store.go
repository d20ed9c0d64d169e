// Package store persists analysis job history so finished jobs survive a
// server restart and can be listed from the CLI.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/RishavT/iitmdocs/internal/config"
	"github.com/RishavT/iitmdocs/internal/model"
)

// ErrNotFound is returned when a job ID is unknown.
var ErrNotFound = eris.New("store: job not found")

// Store defines the persistence interface for job history.
type Store interface {
	// SaveJob inserts the job or replaces the stored copy.
	SaveJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error)
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the configured backend and applies its schema. Driver "none"
// (or empty) returns a nil Store.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

const defaultListLimit = 100

func listLimit(f model.JobFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
