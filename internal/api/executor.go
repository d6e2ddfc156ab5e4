// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
)

// Task is backend work for one exchange. Its result is sent to the
// exchange's session.
type Task func(ctx context.Context) Response

type job struct {
	sess     *Session
	task     Task
	enqueued time.Time
}

// Executor is a fixed pool of background workers fed by a bounded queue.
// It runs as a suture service; tasks submitted before Serve starts wait in
// the queue.
type Executor struct {
	workers int
	queue   chan job
}

// NewExecutor creates an executor with the given number of workers and
// queue capacity.
func NewExecutor(workers, queueSize int) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Executor{workers: workers, queue: make(chan job, queueSize)}
}

// Submit queues task for sess. It blocks while the queue is full and gives
// up when the session's context ends; the caller then owns the response.
func (e *Executor) Submit(sess *Session, task Task) error {
	j := job{sess: sess, task: task, enqueued: time.Now()}

	select {
	case e.queue <- j:
		metrics.ExecutorQueueDepth.Inc()
		return nil
	default:
	}

	logging.Ctx(sess.Context()).Warn().Int("workers", e.workers).Msg("Executor queue full, waiting")

	select {
	case e.queue <- j:
		metrics.ExecutorQueueDepth.Inc()
		return nil
	case <-sess.Context().Done():
		metrics.ExecutorTasks.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %v", ErrExecutorSaturated, sess.Context().Err())
	}
}

// Serve implements suture.Service. Workers stop taking new tasks when ctx
// is cancelled; a task already running finishes first.
func (e *Executor) Serve(ctx context.Context) error {
	logging.Info().Int("workers", e.workers).Int("queue_size", cap(e.queue)).Msg("Request executor started")

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.work(ctx)
		}()
	}
	wg.Wait()

	logging.Info().Msg("Request executor stopped")
	return nil
}

// String implements fmt.Stringer for suture logging.
func (e *Executor) String() string {
	return "request-executor"
}

func (e *Executor) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-e.queue:
			metrics.ExecutorQueueDepth.Dec()
			e.run(j)
		}
	}
}

func (e *Executor) run(j job) {
	ctx := j.sess.Context()
	if err := ctx.Err(); err != nil {
		metrics.ExecutorTasks.WithLabelValues("abandoned").Inc()
		logging.Ctx(ctx).Debug().Err(err).Dur("queued", time.Since(j.enqueued)).Msg("Skipping task for finished request")
		return
	}

	metrics.ExecutorBusyWorkers.Inc()
	start := time.Now()
	defer func() {
		metrics.ExecutorBusyWorkers.Dec()
		metrics.ExecutorTaskDuration.Observe(time.Since(start).Seconds())

		if r := recover(); r != nil {
			metrics.ExecutorTasks.WithLabelValues("panicked").Inc()
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Background task panicked")
			j.sess.Send(Fail(http.StatusInternalServerError))
		}
	}()

	resp := j.task(ctx)
	metrics.ExecutorTasks.WithLabelValues("completed").Inc()
	j.sess.Send(resp)
}
