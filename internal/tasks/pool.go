package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

// Submitter schedules fire-and-forget jobs keyed for deduplication.
type Submitter interface {
	Submit(key string, fn Job) (*Handle, error)
	InFlight(key string) bool
}

// Handle tracks one submitted job.
type Handle struct {
	ID        string
	Key       string
	Submitted time.Time

	done chan struct{}
	err  error
}

// Done is closed once the job has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the job's error; nil while it is still running.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type queued struct {
	handle *Handle
	fn     Job
}

// Pool runs jobs on a fixed set of workers fed by a bounded queue.
//
// A job submitted under a key that is still queued or running is not queued
// again; the caller receives the existing handle.
type Pool struct {
	mu       sync.Mutex
	queue    chan queued
	inflight map[string]*Handle
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *log.Logger
}

var _ Submitter = (*Pool)(nil)

// NewPool starts workers goroutines sharing a queue of queueSize jobs.
func NewPool(workers, queueSize int, logger *log.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:    make(chan queued, queueSize),
		inflight: make(map[string]*Handle),
		ctx:      ctx,
		cancel:   cancel,
		logger:   shared.WithLogger(logger, "component", "tasks"),
	}

	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues fn under key without blocking.
//
// Returns [shared.ErrQueueFull] when the queue is at capacity and
// [shared.ErrPoolClosed] after [Pool.Close].
func (p *Pool) Submit(key string, fn Job) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, shared.ErrPoolClosed
	}
	if h, ok := p.inflight[key]; ok {
		return h, nil
	}

	h := &Handle{ID: shared.GenerateID(), Key: key, Submitted: time.Now(), done: make(chan struct{})}
	select {
	case p.queue <- queued{handle: h, fn: fn}:
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrQueueFull, key)
	}

	p.inflight[key] = h
	return h, nil
}

// InFlight reports whether a job with key is queued or running.
func (p *Pool) InFlight(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inflight[key]
	return ok
}

// Close stops intake and waits for queued and running jobs to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

// Shutdown is Close bounded by ctx; on expiry running jobs see their context cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for q := range p.queue {
		err := p.run(q)

		p.mu.Lock()
		delete(p.inflight, q.handle.Key)
		p.mu.Unlock()

		q.handle.err = err
		close(q.handle.done)
	}
}

func (p *Pool) run(q queued) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", q.handle.Key, r)
		}
		if err != nil {
			p.logger.Error("task failed", "task", q.handle.Key, "id", q.handle.ID, "err", err)
		}
	}()

	start := time.Now()
	err = q.fn(p.ctx)
	p.logger.Debug("task finished", "task", q.handle.Key, "id", q.handle.ID, "took", time.Since(start))
	return err
}

// uuidKey namespaces ad hoc jobs that must never coalesce.
func uuidKey(prefix string) string {
	return prefix + ":" + uuid.NewString()
}
