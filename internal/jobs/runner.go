// Package jobs runs web-submitted analyses in the background and tracks
// their progress for polling and streaming clients.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/metrics"
	"github.com/RishavT/iitmdocs/internal/model"
	"github.com/RishavT/iitmdocs/internal/store"
)

// Work performs one analysis. It reports progress through report and
// returns the finished summary.
type Work func(ctx context.Context, report func(pct int, msg string)) (*model.Summary, error)

// Runner owns the job table. Jobs live in memory until they have been
// terminal for longer than the TTL; an optional store keeps history.
type Runner struct {
	mu    sync.RWMutex
	jobs  map[string]*model.Job
	store store.Store
	ttl   time.Duration
	now   func() time.Time

	// slots bounds concurrently running analyses; nil means unbounded.
	slots chan struct{}

	ctx context.Context
	wg  sync.WaitGroup
}

// New creates a Runner. Jobs run under ctx, so cancelling it aborts
// in-flight analyses. st may be nil.
func New(ctx context.Context, st store.Store, ttl time.Duration) *Runner {
	return &Runner{
		jobs:  make(map[string]*model.Job),
		store: st,
		ttl:   ttl,
		now:   time.Now,
		ctx:   ctx,
	}
}

// SetLimit bounds how many analyses run at once. Jobs over the limit stay
// pending until a slot frees. n <= 0 removes the bound. Call before Submit.
func (r *Runner) SetLimit(n int) {
	if n <= 0 {
		r.slots = nil
		return
	}
	r.slots = make(chan struct{}, n)
}

// Submit registers a pending job and starts work in the background.
func (r *Runner) Submit(filename string, work Work) model.Job {
	now := r.now().UTC()

	r.mu.Lock()
	id := r.newID()
	job := &model.Job{
		ID:        id,
		Filename:  filename,
		Status:    model.JobPending,
		Progress:  0,
		Message:   "Initializing...",
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.jobs[id] = job
	snapshot := *job
	r.mu.Unlock()

	metrics.IncJob(string(model.JobPending))
	r.persist(snapshot)
	zap.L().Info("jobs: submitted", zap.String("job", id), zap.String("file", filename))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(id, work)
	}()
	return snapshot
}

func (r *Runner) run(id string, work Work) {
	if r.slots != nil {
		select {
		case r.slots <- struct{}{}:
			defer func() { <-r.slots }()
		case <-r.ctx.Done():
		}
		if r.ctx.Err() != nil {
			r.fail(id, eris.New("jobs: analysis cancelled before start"))
			return
		}
	}

	started, ok := r.update(id, func(j *model.Job) {
		j.Status = model.JobRunning
		j.Message = "Starting analysis..."
	})
	if ok {
		metrics.IncJob(string(model.JobRunning))
		r.persist(started)
	}

	report := func(pct int, msg string) {
		r.update(id, func(j *model.Job) {
			j.Progress = pct
			j.Message = msg
		})
	}

	sum, err := r.safeWork(work, report)
	if err != nil {
		r.fail(id, err)
		return
	}

	r.finish(id, func(j *model.Job) {
		j.Status = model.JobCompleted
		j.Message = "Analysis complete!"
		j.Progress = 100
		j.Result = sum
	})
	zap.L().Info("jobs: analysis complete", zap.String("job", id), zap.Int("total", sum.Total))
}

func (r *Runner) fail(id string, err error) {
	msg := err.Error()
	zap.L().Error("jobs: analysis failed", zap.String("job", id), zap.Error(err))
	r.finish(id, func(j *model.Job) {
		j.Status = model.JobError
		j.Message = "Error: " + msg
		j.Error = &msg
		j.Progress = 100
	})
}

func (r *Runner) safeWork(work Work, report func(int, string)) (sum *model.Summary, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("jobs: analysis panicked: %v", p)
		}
	}()
	sum, err = work(r.ctx, report)
	if err == nil && sum == nil {
		err = eris.New("jobs: analysis returned no result")
	}
	return sum, err
}

func (r *Runner) update(id string, mutate func(*model.Job)) (model.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status.Terminal() {
		return model.Job{}, false
	}
	mutate(j)
	j.UpdatedAt = r.now().UTC()
	return *j, true
}

func (r *Runner) finish(id string, mutate func(*model.Job)) {
	snapshot, ok := r.update(id, mutate)
	if !ok {
		return
	}
	metrics.IncJob(string(snapshot.Status))
	r.persist(snapshot)
}

func (r *Runner) persist(j model.Job) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), 5*time.Second)
	defer cancel()
	if err := r.store.SaveJob(ctx, &j); err != nil {
		zap.L().Warn("jobs: persist failed", zap.String("job", j.ID), zap.Error(err))
	}
}

// Get returns a copy of the job. Jobs no longer in memory are looked up
// in the store when one is configured.
func (r *Runner) Get(ctx context.Context, id string) (model.Job, bool) {
	r.mu.RLock()
	j, ok := r.jobs[id]
	var snapshot model.Job
	if ok {
		snapshot = *j
	}
	r.mu.RUnlock()
	if ok {
		return snapshot, true
	}

	if r.store == nil {
		return model.Job{}, false
	}
	stored, err := r.store.GetJob(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("jobs: store lookup failed", zap.String("job", id), zap.Error(err))
		}
		return model.Job{}, false
	}
	return *stored, true
}

// Sweep evicts terminal jobs idle for longer than the TTL and returns how
// many were removed. Running jobs are never evicted.
func (r *Runner) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().UTC().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.jobs {
		if j.Status.Terminal() && j.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			n++
		}
	}
	if n > 0 {
		zap.L().Debug("jobs: swept", zap.Int("evicted", n), zap.Int("remaining", len(r.jobs)))
	}
	return n
}

// StartSweeper calls Sweep every interval until the runner context ends.
func (r *Runner) StartSweeper(interval time.Duration) {
	if interval <= 0 || r.ttl <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.Sweep()
			}
		}
	}()
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Len returns the number of jobs held in memory.
func (r *Runner) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// newID returns an unused eight-character ID. Callers hold r.mu.
func (r *Runner) newID() string {
	for {
		id := uuid.NewString()[:8]
		if _, taken := r.jobs[id]; !taken {
			return id
		}
	}
}
