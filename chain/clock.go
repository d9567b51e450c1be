package chain

import (
	"fmt"
	"sync"
	"time"

	"github.com/trustmesh/rpn/logx"
)

// LocalClock is a block-height ticker for single-node deployments: height
// advances once per interval from a fixed genesis. It stands in for the
// consensus layer's height/time source behind interfaces.Clock.
type LocalClock struct {
	mu       sync.RWMutex
	height   uint64
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLocalClock starts counting from startHeight, one height per interval.
func NewLocalClock(startHeight uint64, interval time.Duration) *LocalClock {
	return &LocalClock{
		height:   startHeight,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Run advances the height until Stop. Call from a supervised goroutine.
func (c *LocalClock) Run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logx.Info("CLOCK", fmt.Sprintf("Local clock started | height=%d interval=%s", c.CurrentHeight(), c.interval))
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.height++
			c.mu.Unlock()
		}
	}
}

// Stop halts the ticker. Safe to call more than once.
func (c *LocalClock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// CurrentHeight returns the current block height.
func (c *LocalClock) CurrentHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.height
}

// CurrentTime returns the current wall-clock time.
func (c *LocalClock) CurrentTime() time.Time {
	return time.Now()
}

// ManualClock is a hand-advanced clock for tests and offline tools.
type ManualClock struct {
	mu     sync.RWMutex
	height uint64
	now    time.Time
}

// NewManualClock starts at the given height.
func NewManualClock(height uint64) *ManualClock {
	return &ManualClock{height: height, now: time.Now()}
}

// Advance moves the height forward by n.
func (c *ManualClock) Advance(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.height += n
}

func (c *ManualClock) CurrentHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.height
}

func (c *ManualClock) CurrentTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.now
}
