// Package batch drives the external tool over many items by grouping them
// into fixed-size batches, one prompt per batch, and reassembling the
// per-item results in input order.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RishavT/iitmdocs/internal/llmtool"
	"github.com/RishavT/iitmdocs/internal/metrics"
	"github.com/RishavT/iitmdocs/internal/model"
)

const (
	DefaultBatchSize = 25
	DefaultWorkers   = 4
	DefaultTimeout   = 180 * time.Second
)

// Task describes one kind of batched request: how to prompt for a batch,
// how to read the reply, and what to record when the call fails.
type Task[T any] interface {
	Name() string
	Prompt(items []model.BatchItem) string
	// Parse must return exactly n results.
	Parse(reply string, n int) []T
	Failed(sentinel string) T
}

// Progress is called once per completed batch with a count that only
// ever increases.
type Progress func(done, total int)

// Orchestrator holds the execution settings shared by all batched tasks.
type Orchestrator struct {
	Invoker   llmtool.Invoker
	BatchSize int
	Workers   int
	Timeout   time.Duration
}

// Run sends items through task in batches and returns one result per item,
// result i belonging to items[i]. Tool failures become Failed records for
// the affected batch only.
func Run[T any](ctx context.Context, o Orchestrator, task Task[T], items []model.BatchItem, progress Progress) []T {
	if len(items) == 0 {
		return []T{}
	}

	size := o.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	batches := Partition(items, size)
	slots := make([][]T, len(batches))

	zap.L().Info("batch: starting",
		zap.String("task", task.Name()),
		zap.Int("items", len(items)),
		zap.Int("batches", len(batches)),
		zap.Int("workers", workers),
	)

	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(workers)

	for i, b := range batches {
		g.Go(func() error {
			slots[i] = runOne(ctx, o.Invoker, task, i, b, timeout)

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(batches))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]T, 0, len(items))
	for _, s := range slots {
		out = append(out, s...)
	}
	return out
}

// runOne executes a single batch. It always returns len(items) results.
func runOne[T any](ctx context.Context, inv llmtool.Invoker, task Task[T], idx int, items []model.BatchItem, timeout time.Duration) (results []T) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("batch: panic in batch",
				zap.String("task", task.Name()),
				zap.Int("batch", idx),
				zap.Any("panic", r),
			)
			results = fill(task, len(items), fmt.Sprintf("[ERROR: panic: %v]", r))
		}
	}()

	start := time.Now()
	reply := llmtool.Run(ctx, inv, task.Prompt(items), timeout)
	metrics.ObserveBatch(task.Name(), time.Since(start).Seconds())

	if llmtool.IsSentinel(reply) {
		zap.L().Warn("batch: tool call failed",
			zap.String("task", task.Name()),
			zap.Int("batch", idx),
			zap.Int("items", len(items)),
			zap.String("sentinel", reply),
		)
		return fill(task, len(items), reply)
	}

	results = task.Parse(reply, len(items))
	if len(results) != len(items) {
		zap.L().Error("batch: parser returned wrong count",
			zap.String("task", task.Name()),
			zap.Int("want", len(items)),
			zap.Int("got", len(results)),
		)
		fixed := fill(task, len(items), "[ERROR: reply could not be aligned]")
		copy(fixed, results)
		results = fixed
	}

	zap.L().Debug("batch: batch complete",
		zap.String("task", task.Name()),
		zap.Int("batch", idx),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}

func fill[T any](task Task[T], n int, sentinel string) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = task.Failed(sentinel)
	}
	return out
}

// Partition splits items into contiguous batches of at most size items.
func Partition(items []model.BatchItem, size int) [][]model.BatchItem {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batches [][]model.BatchItem
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// Span maps batch completion onto the [lo, hi] slice of an overall
// percentage and forwards it to report.
func Span(lo, hi int, report func(pct int)) Progress {
	return func(done, total int) {
		if total <= 0 || report == nil {
			return
		}
		report(lo + (hi-lo)*done/total)
	}
}
