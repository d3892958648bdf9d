// Package worker runs the retention loop: every interval it flushes
// buffered entries into storage in batches, then enforces the count
// cap and the retention window.
package worker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emberlog/emberlog/internal/buffer"
	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/metrics"
	"github.com/emberlog/emberlog/internal/storage"
)

type Options struct {
	Interval  time.Duration
	BatchSize int

	MaxEntries int
	Retention  time.Duration

	// BackendName labels the worker's metrics.
	BackendName string

	// CycleTimeout bounds the backend calls of one cycle so a hung
	// backend cannot wedge the loop goroutine. Zero means Interval.
	CycleTimeout time.Duration
}

type Worker struct {
	buf      *buffer.Buffer
	backend  storage.Backend
	counters *metrics.Counters
	opts     Options

	startOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func New(buf *buffer.Buffer, backend storage.Backend, counters *metrics.Counters, opts Options) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = opts.Interval
	}
	return &Worker{
		buf:      buf,
		backend:  backend,
		counters: counters,
		opts:     opts,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the loop. Repeated calls are no-ops.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

func (w *Worker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.boundedCycle()
		case <-w.stop:
			// Final flush so entries captured just before shutdown
			// still reach storage.
			w.boundedCycle()
			return
		}
	}
}

func (w *Worker) boundedCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.CycleTimeout)
	defer cancel()
	w.Cycle(ctx)
}

// Stop shuts the loop down, waiting for the in-flight cycle and the
// final flush up to the ctx deadline. On timeout the remaining buffer
// contents are abandoned.
func (w *Worker) Stop(ctx context.Context) error {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		log.Warnf("Worker shutdown timed out, %d buffered entries abandoned", w.buf.Len())
		return ctx.Err()
	}
}

// Cycle performs one full pass: flush everything buffered, then trim.
// Exported so tests and shutdown paths can run passes deterministically.
func (w *Worker) Cycle(ctx context.Context) {
	w.counters.FlushCycles.Inc(w.opts.BackendName)

	for {
		batch := w.buf.DrainBatch(w.opts.BatchSize)
		if len(batch) == 0 {
			break
		}
		w.flush(ctx, batch)
	}

	// Backends that stage writes in a queue get a drain pass even when
	// nothing new was buffered, so deferred entries become visible.
	if drainer, ok := w.backend.(storage.QueueDrainer); ok {
		if err := drainer.DrainQueued(ctx); err != nil {
			log.Errorf("Failed to drain staged entries: %v", err)
		}
	}

	if w.opts.MaxEntries > 0 {
		if err := w.backend.TrimByCount(ctx, w.opts.MaxEntries); err != nil {
			log.Errorf("Failed to trim by count: %v", err)
			w.counters.TrimFailures.Inc(w.opts.BackendName, "count")
		}
	}
	if w.opts.Retention > 0 {
		cutoff := time.Now().UTC().Add(-w.opts.Retention)
		if err := w.backend.TrimByAge(ctx, cutoff); err != nil {
			log.Errorf("Failed to trim by age: %v", err)
			w.counters.TrimFailures.Inc(w.opts.BackendName, "age")
		}
	}
}

// flush writes one batch, retrying once. A batch that fails twice is
// dropped rather than requeued: requeueing a poison batch would starve
// everything behind it.
func (w *Worker) flush(ctx context.Context, batch []domain.LogEntry) {
	err := w.backend.InsertBatch(ctx, batch)
	if err == nil {
		return
	}
	log.Warnf("Flush failed, retrying once: %v", err)

	if err := w.backend.InsertBatch(ctx, batch); err != nil {
		log.Errorf("Flush retry failed, dropping %d entries: %v", len(batch), err)
		w.counters.FlushFailures.Inc(w.opts.BackendName)
	}
}
