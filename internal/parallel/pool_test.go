package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close() // idempotent

	var counter atomic.Int64
	pool.ExecuteAll([]func(){func() { counter.Add(1) }, func() { counter.Add(1) }})
	if counter.Load() != 2 {
		t.Errorf("counter = %d, want 2 (inline execution)", counter.Load())
	}
	if pool.IsRunning() {
		t.Error("IsRunning() = true after Close")
	}
}

func TestWorkerPool_Rows(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		height  int
	}{
		{"single row", 4, 1},
		{"small", 4, 7},
		{"uneven", 3, 101},
		{"large", 8, 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.workers)
			defer pool.Close()

			var mu sync.Mutex
			seen := make([]int, tt.height)
			pool.Rows(tt.height, func(y0, y1 int) {
				mu.Lock()
				defer mu.Unlock()
				for y := y0; y < y1; y++ {
					seen[y]++
				}
			})
			for y, n := range seen {
				if n != 1 {
					t.Fatalf("row %d visited %d times, want 1", y, n)
				}
			}
		})
	}
}

func TestWorkerPool_RowsEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	called := false
	pool.Rows(0, func(int, int) { called = true })
	if called {
		t.Error("Rows(0) invoked fn")
	}
}
