package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 4, QueueSize: 16})
	if err := pool.Start(); err != nil {
		t.Fatalf("failed to start pool: %v", err)
	}
	defer pool.Stop()

	var count int64
	for i := 0; i < 50; i++ {
		err := pool.SubmitFunc(fmt.Sprintf("task-%d", i), func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	pool.Wait()
	if got := atomic.LoadInt64(&count); got != 50 {
		t.Errorf("expected 50 tasks to run, got %d", got)
	}
}

// A pool built without an explicit TaskTimeout must still hand tasks a
// live context, not one that expired at zero.
func TestPoolDefaultTimeoutLeavesContextLive(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 1})
	if err := pool.Start(); err != nil {
		t.Fatalf("failed to start pool: %v", err)
	}
	defer pool.Stop()

	errCh := make(chan error, 1)
	if err := pool.SubmitFunc("ctx-check", func(ctx context.Context) error {
		errCh <- ctx.Err()
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	pool.Wait()
	if err := <-errCh; err != nil {
		t.Errorf("task context already expired at start: %v", err)
	}
}

func TestPoolSubmitBeforeStart(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 1})
	if err := pool.SubmitFunc("early", func(ctx context.Context) error { return nil }); err == nil {
		t.Error("expected submit before start to fail")
	}
}

func TestPoolDoubleStart(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 1})
	if err := pool.Start(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer pool.Stop()

	if err := pool.Start(); err == nil {
		t.Error("expected second start to fail")
	}
}

func TestPoolRecoversPanic(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 2})
	if err := pool.Start(); err != nil {
		t.Fatalf("failed to start pool: %v", err)
	}
	defer pool.Stop()

	var after int64
	if err := pool.SubmitFunc("boom", func(ctx context.Context) error {
		panic("boom")
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := pool.SubmitFunc("after", func(ctx context.Context) error {
		atomic.AddInt64(&after, 1)
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	pool.Wait()
	if atomic.LoadInt64(&after) != 1 {
		t.Error("expected pool to keep running after a task panic")
	}
}

func TestPoolTaskTimeout(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 1, TaskTimeout: 10 * time.Millisecond})
	if err := pool.Start(); err != nil {
		t.Fatalf("failed to start pool: %v", err)
	}
	defer pool.Stop()

	done := make(chan struct{})
	if err := pool.SubmitFunc("slow", func(ctx context.Context) error {
		defer close(done)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not observe its timeout")
	}
	pool.Wait()
}
