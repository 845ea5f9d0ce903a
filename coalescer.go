package tegaki

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrCoalescerClosed is returned by Add after Close.
var ErrCoalescerClosed = errors.New("tegaki: coalescer closed")

// Coalescer batches pointer samples so a fast input device does not start
// one pipeline invocation per event.
//
// Points are delivered to the flush callback in the order they were added,
// either when maxPending points are pending or when interval has passed
// since the first pending point. The callback runs on the goroutine that
// triggered the flush (or a timer goroutine) and must not call Add.
type Coalescer struct {
	mu       sync.Mutex
	pending  []StrokePoint
	timer    *time.Timer
	closed   bool
	max      int
	interval time.Duration

	// gen counts deliveries; a timer armed for an earlier batch sees a
	// different value and does nothing.
	gen       uint64
	afterFunc func(time.Duration, func()) *time.Timer

	// flushMu orders deliveries: it is taken before mu is released, so a
	// later batch can never overtake an earlier one.
	flushMu sync.Mutex
	flush   func([]StrokePoint)
}

// NewCoalescer returns a coalescer delivering batches to flush. A
// maxPending below 1 means 1; an interval of 0 disables the timer.
func NewCoalescer(maxPending int, interval time.Duration, flush func([]StrokePoint)) *Coalescer {
	return &Coalescer{
		max:       max(maxPending, 1),
		interval:  interval,
		flush:     flush,
		afterFunc: time.AfterFunc,
	}
}

// Add queues a point.
func (c *Coalescer) Add(p StrokePoint) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCoalescerClosed
	}
	c.pending = append(c.pending, p)
	if len(c.pending) >= c.max {
		c.deliverLocked()
		return nil
	}
	if len(c.pending) == 1 && c.interval > 0 {
		gen := c.gen
		c.timer = c.afterFunc(c.interval, func() { c.expire(gen) })
	}
	c.mu.Unlock()
	return nil
}

// Pending returns the number of queued points.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush delivers the pending points now.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	c.deliverLocked()
}

// expire is the timer callback of the batch started at generation gen.
func (c *Coalescer) expire(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.deliverLocked()
}

// Close flushes the remaining points. Later Adds fail.
func (c *Coalescer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.deliverLocked()
}

// deliverLocked hands the pending batch to the callback. It must be called
// with mu held and returns with mu released.
func (c *Coalescer) deliverLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	batch := c.pending
	c.pending = nil
	c.gen++

	c.flushMu.Lock()
	c.mu.Unlock()
	defer c.flushMu.Unlock()
	if len(batch) > 0 && c.flush != nil {
		c.flush(batch)
	}
}

// StrokeRecorder accumulates coalesced batches into the point list of one
// stroke. Its Append method is a ready-made flush callback.
//
// StrokeRecorder is safe for concurrent use.
type StrokeRecorder struct {
	mu     sync.Mutex
	points []StrokePoint
}

// Append adds a batch of points.
func (r *StrokeRecorder) Append(batch []StrokePoint) {
	r.mu.Lock()
	r.points = append(r.points, batch...)
	r.mu.Unlock()
}

// Points returns a copy of the recorded points.
func (r *StrokeRecorder) Points() []StrokePoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.points)
}

// Len returns the number of recorded points.
func (r *StrokeRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

// Take returns the recorded points and starts a new stroke.
func (r *StrokeRecorder) Take() []StrokePoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	pts := r.points
	r.points = nil
	return pts
}

// Stroke returns the recorded points as a stroke with the given brush.
func (r *StrokeRecorder) Stroke(brush Brush, layer string) Stroke {
	return Stroke{Points: r.Points(), Brush: brush, Layer: layer}
}
