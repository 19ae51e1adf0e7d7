package chunkgen

import (
	"context"
	"errors"
	"sync"
)

// ErrWorkerStopped is returned for requests submitted after the worker exits.
var ErrWorkerStopped = errors.New("chunkgen: worker stopped")

// Result is the outcome of one submitted request.
type Result struct {
	Request  Request
	Response *Response
	Err      error
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan Result
}

// Worker runs a Generator on its own goroutine. Requests are served in
// submission order.
type Worker struct {
	gen  *Generator
	jobs chan job
	done chan struct{}
	wg   sync.WaitGroup
}

func NewWorker(gen *Generator, queueDepth int) *Worker {
	if queueDepth <= 0 {
		queueDepth = 1
	}
	return &Worker{
		gen:  gen,
		jobs: make(chan job, queueDepth),
		done: make(chan struct{}),
	}
}

// Start launches the worker goroutine. It exits when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	if w == nil || w.gen == nil {
		return
	}
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			close(w.done)
			w.drain()
			return
		case j := <-w.jobs:
			if err := j.ctx.Err(); err != nil {
				j.reply <- Result{Request: j.req, Err: err}
				continue
			}
			resp, err := w.gen.Generate(j.ctx, &j.req)
			j.reply <- Result{Request: j.req, Response: resp, Err: err}
		}
	}
}

// drain answers every queued job with ErrWorkerStopped. It runs once done is
// closed, from the worker and from any Submit that raced the shutdown.
func (w *Worker) drain() {
	for {
		select {
		case j := <-w.jobs:
			j.reply <- Result{Request: j.req, Err: ErrWorkerStopped}
		default:
			return
		}
	}
}

// Submit queues a copy of req and returns a channel that receives exactly one
// Result. Cancelling ctx abandons the request before any slot is assigned.
func (w *Worker) Submit(ctx context.Context, req Request) <-chan Result {
	reply := make(chan Result, 1)
	req = req.Clone()
	select {
	case <-w.done:
		reply <- Result{Request: req, Err: ErrWorkerStopped}
		return reply
	default:
	}
	select {
	case w.jobs <- job{ctx: ctx, req: req, reply: reply}:
		select {
		case <-w.done:
			// The worker may have drained before the job landed.
			w.drain()
		default:
		}
	case <-ctx.Done():
		reply <- Result{Request: req, Err: ctx.Err()}
	case <-w.done:
		reply <- Result{Request: req, Err: ErrWorkerStopped}
	}
	return reply
}

// Wait blocks until the worker goroutine exits.
func (w *Worker) Wait() {
	if w == nil {
		return
	}
	w.wg.Wait()
}
