package visibility

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// scanJob is a unit of work for the worker pool.
type scanJob struct {
	index  int
	target Target
}

// scanOutput pairs a scan with its position in the request.
type scanOutput struct {
	index int
	scan  ObjectScan
}

// WorkerPool manages a fixed number of goroutines for parallel object scans.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// A non-positive count uses runtime.NumCPU().
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// ScanAll scans every target over times. The returned slice is parallel to
// targets regardless of completion order. Targets not started before ctx is
// cancelled carry ctx.Err().
func (wp *WorkerPool) ScanAll(ctx context.Context, scanner *Scanner, targets []Target, times []time.Time) []ObjectScan {
	scans := make([]ObjectScan, len(targets))
	if len(targets) == 0 {
		return scans
	}
	completed := make([]bool, len(targets))

	jobs := make(chan scanJob, wp.workers*2)
	results := make(chan scanOutput, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				out := scanOutput{index: job.index, scan: scanner.Scan(ctx, job.target, times)}
				select {
				case results <- out:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, t := range targets {
			select {
			case jobs <- scanJob{index: i, target: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	var done int
	for out := range results {
		scans[out.index] = out.scan
		completed[out.index] = true
		done++
	}

	if done < len(targets) {
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		for i, t := range targets {
			if !completed[i] {
				scans[i] = ObjectScan{Object: t.Name, Err: err}
			}
		}
		wp.logger.Warn("scan interrupted", "completed", done, "total", len(targets), "error", err)
	}
	return scans
}
