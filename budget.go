package tegaki

import (
	"fmt"
	"sync"
)

// memoryBudget tracks the GPU memory reserved by stroke invocations.
//
// memoryBudget is safe for concurrent use.
type memoryBudget struct {
	mu    sync.Mutex
	limit uint64
	used  uint64
	peak  uint64
}

func newMemoryBudget(limit uint64) *memoryBudget {
	return &memoryBudget{limit: limit}
}

// fits reports whether n more bytes would stay within the budget.
func (b *memoryBudget) fits(n uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used+n <= b.limit
}

// reserve books n bytes or fails with ErrResourceExhausted.
func (b *memoryBudget) reserve(n uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used+n > b.limit {
		return fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrResourceExhausted, n, b.used, b.limit)
	}
	b.used += n
	b.peak = max(b.peak, b.used)
	return nil
}

func (b *memoryBudget) release(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.used {
		n = b.used
	}
	b.used -= n
}

func (b *memoryBudget) stats() (used, peak, limit uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used, b.peak, b.limit
}
