// Package enrich holds the asynchronous post-write pipeline: an
// unbounded in-process FIFO of pending tasks and the single worker that
// drains it, normalizes record fields and publishes processed events.
//
// Tasks live only in memory; a crash drops whatever is pending. Failures
// while processing a task are logged and swallowed - the originating
// request has long since completed.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/recordsvc"
)

// Queue is an unbounded FIFO of enrichment tasks. One producer side (the
// service's request handlers) feeds one consumer (the worker). Enqueue
// never blocks.
type Queue struct {
	mu    sync.Mutex
	items []recordsvc.Task
	wake  chan struct{}
}

var _ recordsvc.Enqueuer = (*Queue)(nil)

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

func (q *Queue) Enqueue(t recordsvc.Task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue returns the oldest pending task. When the queue is empty it
// blocks, re-checking liveness every idle interval, until a task arrives
// or ctx is cancelled (ok=false).
func (q *Queue) Dequeue(ctx context.Context, idle time.Duration) (recordsvc.Task, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return t, true
		}
		q.mu.Unlock()

		timer := time.NewTimer(idle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return recordsvc.Task{}, false
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Len reports the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
