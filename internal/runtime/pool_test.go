package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codelevels/internal/domain/execution"
)

type blockingRunner struct {
	mu      sync.Mutex
	active  int
	peak    int
	started chan struct{}
	release chan struct{}
	closed  bool
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingRunner) Run(ctx context.Context, unit execution.Unit) (*execution.Result, error) {
	b.mu.Lock()
	b.active++
	if b.active > b.peak {
		b.peak = b.active
	}
	b.mu.Unlock()

	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
	}

	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	return &execution.Result{Status: execution.StatusOK}, nil
}

func (b *blockingRunner) Close() error {
	b.closed = true
	return nil
}

func TestPoolRejectsWhenSaturated(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner()
	pool := NewPool(runner, 1, 0)

	done := make(chan error, 1)
	go func() {
		_, err := pool.Run(context.Background(), execution.Unit{})
		done <- err
	}()
	<-runner.started

	if _, err := pool.Run(context.Background(), execution.Unit{}); !errors.Is(err, ErrSaturated) {
		t.Fatalf("expected ErrSaturated, got %v", err)
	}

	close(runner.release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestPoolQueuesWithinWait(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner()
	pool := NewPool(runner, 2, 5*time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Run(context.Background(), execution.Unit{})
			errs <- err
		}()
	}

	<-runner.started
	<-runner.started
	close(runner.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if runner.peak > 2 {
		t.Fatalf("expected at most 2 concurrent runs, got %d", runner.peak)
	}
}

func TestPoolWaitTimesOut(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner()
	pool := NewPool(runner, 1, 20*time.Millisecond)

	go func() {
		_, _ = pool.Run(context.Background(), execution.Unit{})
	}()
	<-runner.started
	defer close(runner.release)

	if _, err := pool.Run(context.Background(), execution.Unit{}); !errors.Is(err, ErrSaturated) {
		t.Fatalf("expected ErrSaturated after queue wait, got %v", err)
	}
}

func TestPoolCloseClosesRunner(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner()
	if err := NewPool(runner, 1, 0).Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !runner.closed {
		t.Fatal("expected wrapped runner to be closed")
	}
}
