package usecase

import (
	"context"

	"github.com/Bhavy-official/RevLens/internal/ports"
)

// Refresher wires the periodic driver with the pipeline so every stored
// product gets re-scraped and re-scored on an interval.
type Refresher struct {
	driver   ports.Scheduler
	pipeline *Pipeline
}

// NewRefresher returns a helper to start/stop the recurring refresh job.
func NewRefresher(driver ports.Scheduler, pipeline *Pipeline) *Refresher {
	return &Refresher{driver: driver, pipeline: pipeline}
}

// Start registers the refresh job with the provided scheduler.
func (r *Refresher) Start(ctx context.Context) error {
	if r.driver == nil || r.pipeline == nil {
		return nil
	}

	job := func() {
		r.pipeline.RefreshAll(ctx)
	}

	return r.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}

	return r.driver.Stop(ctx)
}
