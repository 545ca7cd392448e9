package service

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/metrics"
)

// task is one unit of device work.
type task struct {
	name string
	fn   func(ctx context.Context)
}

// deviceWorker runs the tasks of one device in arrival order. Everything
// that touches a device's calls goes through its worker: station messages,
// router callbacks, hint deliveries and timer expiries.
type deviceWorker struct {
	id      string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	queue []task
	wake  chan struct{}
}

func newDeviceWorker(id string, logger *slog.Logger, m *metrics.Metrics) *deviceWorker {
	return &deviceWorker{
		id:      id,
		logger:  logger,
		metrics: m,
		wake:    make(chan struct{}, 1),
	}
}

// post queues fn. The mailbox is unbounded so workers can post to each other
// without deadlocking.
func (w *deviceWorker) post(name string, fn func(ctx context.Context)) {
	w.mu.Lock()
	w.queue = append(w.queue, task{name: name, fn: fn})
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// pending returns the number of queued tasks.
func (w *deviceWorker) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// run processes tasks until ctx is done. Tasks still queued then are
// dropped.
func (w *deviceWorker) run(ctx context.Context) error {
	for {
		w.mu.Lock()
		batch := w.queue
		w.queue = nil
		w.mu.Unlock()

		for _, t := range batch {
			if ctx.Err() != nil {
				return nil
			}
			w.exec(ctx, t)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-w.wake:
		}
	}
}

func (w *deviceWorker) exec(ctx context.Context, t task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("device task panicked", "device", w.id, "task", t.name,
				"panic", r, "stack", string(debug.Stack()))
			w.metrics.RecordPanic()
		}
		w.metrics.ObserveHandler(t.name, time.Since(start))
	}()
	t.fn(ctx)
}
