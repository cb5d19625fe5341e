package runner

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrPoolStopped is returned by Submit once shutdown has begun.
var ErrPoolStopped = errors.New("worker pool is stopped")

// Pool is a bounded pool of worker goroutines draining submitted task
// closures. InFlight tracks submitted minus terminated work, which is what
// the scheduler budgets against.
type Pool struct {
	capacity int
	tasks    chan func()

	mu      sync.Mutex
	stopped bool

	wg       sync.WaitGroup // workers
	taskWG   sync.WaitGroup // outstanding tasks
	inFlight int64
}

// NewPool creates a pool with capacity workers.
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{
		capacity: capacity,
		tasks:    make(chan func(), capacity),
	}
}

// Capacity returns the configured worker count.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	slog.Info("starting worker pool", "workers", p.capacity)
	for i := 0; i < p.capacity; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	slog.Debug("worker started", "worker_id", id)
	for task := range p.tasks {
		task()
		atomic.AddInt64(&p.inFlight, -1)
		p.taskWG.Done()
	}
	slog.Debug("worker stopped", "worker_id", id)
}

// Submit hands a task closure to the pool. It rejects work once Stop has
// been called.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolStopped
	}
	p.taskWG.Add(1)
	atomic.AddInt64(&p.inFlight, 1)
	p.tasks <- task
	return nil
}

// InFlight returns submitted minus terminated tasks.
func (p *Pool) InFlight() int {
	return int(atomic.LoadInt64(&p.inFlight))
}

// Stop rejects further submissions, waits for in-flight tasks to finish,
// then releases the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.taskWG.Wait()
	close(p.tasks)
	p.wg.Wait()
	slog.Info("worker pool stopped")
}
