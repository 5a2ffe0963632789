package downloader

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"xscraper/pkg/logger"
)

// Job is a single media download request
type Job struct {
	URL       string
	Owner     string
	ContextID string

	index int
}

// Result is the outcome of a Job. Path is empty when the download failed or was skipped.
type Result struct {
	Job      Job
	Path     string
	Success  bool
	Skipped  bool
	Duration time.Duration
}

// MediaFetcher resolves a remote URL to a local path, returning "" on failure
type MediaFetcher interface {
	Fetch(ctx context.Context, url, owner, contextID string) string
}

// WorkerPool runs media downloads with bounded concurrency. The browser loop
// hands it one batch per scan; results come back in submission order.
type WorkerPool struct {
	numWorkers int
	fetcher    MediaFetcher
	logger     logger.Logger
}

// NewWorkerPool creates a new download worker pool
func NewWorkerPool(numWorkers int, fetcher MediaFetcher, log logger.Logger) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		fetcher:    fetcher,
		logger:     log.WithField("component", "downloader"),
	}
}

// Workers returns the concurrency bound
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// Process downloads every job and blocks until all have finished or ctx is done.
// Jobs not started before cancellation are reported as skipped.
func (wp *WorkerPool) Process(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	workers := wp.numWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobQueue := make(chan Job, workers*2)
	resultQueue := make(chan Result, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		id := i
		g.Go(func() error {
			wp.worker(gctx, id, jobQueue, resultQueue)
			return nil
		})
	}

	go func() {
		defer close(jobQueue)
		for i, job := range jobs {
			job.index = i
			select {
			case jobQueue <- job:
			case <-gctx.Done():
				return
			}
		}
	}()

	go func() {
		g.Wait()
		close(resultQueue)
	}()

	seen := make([]bool, len(jobs))
	for res := range resultQueue {
		results[res.Job.index] = res
		seen[res.Job.index] = true
	}

	for i := range results {
		if !seen[i] {
			results[i] = Result{Job: jobs[i], Skipped: true}
		}
	}

	wp.logger.DebugWithFields("Batch processed", map[string]interface{}{
		"jobs":    len(jobs),
		"workers": workers,
	})
	return results
}

func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan Job, results chan<- Result) {
	for job := range jobs {
		var res Result
		if ctx.Err() != nil {
			res = Result{Job: job, Skipped: true}
		} else {
			res = wp.processJob(ctx, job, id)
		}
		// results is drained until every worker exits, so this send cannot block forever
		results <- res
	}
}

func (wp *WorkerPool) processJob(ctx context.Context, job Job, workerID int) Result {
	start := time.Now()
	path := wp.fetcher.Fetch(ctx, job.URL, job.Owner, job.ContextID)

	result := Result{
		Job:      job,
		Path:     path,
		Success:  path != "",
		Duration: time.Since(start),
	}

	if !result.Success {
		wp.logger.DebugWithFields("Worker could not fetch media", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
		})
	}
	return result
}
