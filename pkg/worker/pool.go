package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"depsweep-go/pkg/logger"
)

// Task represents a unit of work to be executed
type Task struct {
	ID      string
	Fn      func(ctx context.Context) error
	Timeout time.Duration
}

// Result represents the result of task execution
type Result struct {
	TaskID   string
	Error    error
	Duration time.Duration
}

// PoolConfig holds configuration for the worker pool
type PoolConfig struct {
	MaxWorkers  int           `json:"max_workers"`
	QueueSize   int           `json:"queue_size"`
	TaskTimeout time.Duration `json:"task_timeout"`
}

// DefaultPoolConfig returns defaults sized for file-scan workloads
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxWorkers:  runtime.NumCPU() * 2,
		QueueSize:   1024,
		TaskTimeout: 30 * time.Second,
	}
}

// Pool manages a bounded set of goroutines for concurrent task execution.
// Submitters queue tasks, then Wait blocks until every queued task has run.
type Pool struct {
	config    PoolConfig
	taskQueue chan Task
	wg        sync.WaitGroup
	tasks     sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	log       *logger.Logger

	started atomic.Bool
	stopped atomic.Bool
}

// NewPool creates a new worker pool with the given configuration
func NewPool(config PoolConfig) *Pool {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU() * 2
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config:    config,
		taskQueue: make(chan Task, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		log:       logger.GetLogger().WithField("component", "worker_pool"),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("worker pool already started")
	}

	p.log.WithField("max_workers", p.config.MaxWorkers).Debug("Starting worker pool")

	for i := 0; i < p.config.MaxWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(id)
		}(i)
	}
	return nil
}

// Submit adds a task to the pool queue, blocking if the queue is full
func (p *Pool) Submit(task Task) error {
	if p.stopped.Load() {
		return fmt.Errorf("worker pool is stopped")
	}
	if !p.started.Load() {
		return fmt.Errorf("worker pool not started")
	}

	if task.Timeout == 0 {
		task.Timeout = p.config.TaskTimeout
	}

	p.tasks.Add(1)
	select {
	case p.taskQueue <- task:
		return nil
	case <-p.ctx.Done():
		p.tasks.Done()
		return fmt.Errorf("worker pool is stopping")
	}
}

// SubmitFunc is a convenience method to submit a function as a task
func (p *Pool) SubmitFunc(id string, fn func(ctx context.Context) error) error {
	return p.Submit(Task{ID: id, Fn: fn})
}

// Wait blocks until all submitted tasks have completed
func (p *Pool) Wait() {
	p.tasks.Wait()
}

// Stop shuts down the pool after in-flight tasks finish
func (p *Pool) Stop() error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}

	close(p.taskQueue)
	p.wg.Wait()
	p.cancel()
	p.log.Debug("Worker pool stopped")
	return nil
}

func (p *Pool) run(id int) {
	log := p.log.WithField("worker_id", id)
	for {
		select {
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.processTask(task, log)
		case <-p.ctx.Done():
			return
		}
	}
}

// processTask executes a single task with timeout and panic recovery
func (p *Pool) processTask(task Task, log *logger.Logger) {
	defer p.tasks.Done()

	start := time.Now()
	taskCtx, cancel := context.WithTimeout(p.ctx, task.Timeout)
	defer cancel()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("task_id", task.ID).Error("Task panicked")
				err = &PanicError{Value: r}
			}
		}()
		err = task.Fn(taskCtx)
	}()

	if err != nil {
		log.WithFields(map[string]interface{}{
			"task_id":  task.ID,
			"duration": time.Since(start),
			"error":    err.Error(),
		}).Warn("Task completed with error")
	}
}

// PanicError wraps a panic value as an error
type PanicError struct {
	Value interface{}
}

func (pe *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", pe.Value)
}
