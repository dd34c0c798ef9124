// Package tasks runs fire-and-forget side effects (read receipts, incidental
// policy checks, auto reactions) decoupled from the message pipeline: a
// failure here never affects a primary response.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/nattydev/whatsguard/pkg/log"
)

type task struct {
	id   string
	name string
	fn   func(ctx context.Context) error
}

// Queue is a single-worker, best-effort task runner. Submissions never block:
// when the buffer is full the task is dropped and logged. Outbound work is
// throttled so background sends cannot trigger transport rate limits.
type Queue struct {
	ch      chan task
	limiter *rate.Limiter
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(buffer int, perSecond float64, burst int) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	if perSecond <= 0 {
		perSecond = 2
	}
	if burst <= 0 {
		burst = 1
	}

	q := &Queue{
		ch:      make(chan task, buffer),
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	for t := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := q.limiter.Wait(ctx); err != nil {
			cancel()
			continue
		}
		if err := t.fn(ctx); err != nil {
			log.Print(logrus.Fields{"task": t.name, "task_id": t.id}).
				WithError(err).Warn("Background task failed")
		}
		cancel()
	}
}

// Submit enqueues a task. Returns false when the queue is full or stopped.
func (q *Queue) Submit(name string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	t := task{id: uuid.NewString(), name: name, fn: fn}
	select {
	case q.ch <- t:
		return true
	default:
		log.Print(logrus.Fields{"task": name}).Warn("Background task queue full, dropping task")
		return false
	}
}

// Stop drains queued tasks and waits for the worker, bounded by ctx.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
