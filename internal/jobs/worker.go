package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor runs one drain pass over queued work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker owns the polling cadence for background ingestion. It drains once
// immediately on start so documents queued before the daemon came up do not
// wait out the first tick.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stop         chan struct{}
	done         chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. It blocks; callers run it in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	log.Printf("ingestion worker polling every %s", w.pollInterval)
	w.drain(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("ingestion worker stopping: context cancelled")
			return
		case <-w.stop:
			log.Println("ingestion worker stopping")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("ingestion pass failed: %v", err)
	}
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
