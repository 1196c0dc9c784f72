package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/recordsvc"
	"github.com/unkn0wn-root/recordsvc/event"
)

const (
	defaultDelay    = 100 * time.Millisecond
	defaultIdleWait = time.Second
)

// WorkerOptions wire the worker. Queue and Publisher are required.
type WorkerOptions struct {
	// Required
	Queue     *Queue
	Publisher event.Publisher

	Logger   recordsvc.Logger // if nil, NopLogger is used
	Delay    time.Duration    // simulated normalization latency; 0 => 100ms
	IdleWait time.Duration    // empty-queue re-check interval; 0 => 1s
	Now      func() time.Time
}

// Worker drains the queue sequentially for its whole lifetime: one task
// at a time, no concurrent processing. A failing task is logged and the
// loop moves on; the worker itself only stops when its context is
// cancelled at the idle wait.
type Worker struct {
	queue *Queue
	pub   event.Publisher
	log   recordsvc.Logger
	delay time.Duration
	idle  time.Duration
	now   func() time.Time
}

func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("enrich: queue is required")
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("enrich: publisher is required")
	}

	w := &Worker{queue: opts.Queue, pub: opts.Publisher}
	w.log = opts.Logger
	if w.log == nil {
		w.log = recordsvc.NopLogger{}
	}
	w.delay = opts.Delay
	if w.delay == 0 {
		w.delay = defaultDelay
	}
	w.idle = opts.IdleWait
	if w.idle == 0 {
		w.idle = defaultIdleWait
	}
	w.now = opts.Now
	if w.now == nil {
		w.now = time.Now
	}
	return w, nil
}

// Run processes tasks until ctx is cancelled. Call it from a dedicated
// goroutine; it returns only on cancellation.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("enrichment worker started", nil)
	for {
		task, ok := w.queue.Dequeue(ctx, w.idle)
		if !ok {
			w.log.Info("enrichment worker stopped", nil)
			return
		}
		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task recordsvc.Task) {
	// simulated validation/normalization work
	timer := time.NewTimer(w.delay)
	select {
	case <-ctx.Done():
		timer.Stop()
	case <-timer.C:
	}

	ev := event.Event{
		Action:    task.Action,
		Record:    task.Record,
		Timestamp: w.now().UTC(),
	}
	if task.Action == recordsvc.ActionCreate {
		ev.NormalizedPhone = recordsvc.NormalizePhone(task.Record.Phone)
		w.log.Info("record normalized", recordsvc.Fields{
			"id":    task.Record.ID,
			"phone": ev.NormalizedPhone,
		})
	}

	if err := w.pub.Publish(ctx, ev); err != nil {
		w.log.Error("publish processed event failed", recordsvc.Fields{
			"id":     task.Record.ID,
			"action": task.Action,
			"err":    err,
		})
	}
}
