package browser

import (
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/jonboulle/clockwork"
)

// idleTracker follows the requests of a tab so callers can wait until the
// network has been quiet for a while.
type idleTracker struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	inflight map[network.RequestID]struct{}
	last     time.Time
}

func newIdleTracker(clock clockwork.Clock) *idleTracker {
	return &idleTracker{
		clock:    clock,
		inflight: make(map[network.RequestID]struct{}),
		last:     clock.Now(),
	}
}

// handle is registered with chromedp.ListenTarget. It runs on the event
// goroutine and must not block.
func (t *idleTracker) handle(ev any) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.start(ev.RequestID)
	case *network.EventLoadingFinished:
		t.finish(ev.RequestID)
	case *network.EventLoadingFailed:
		t.finish(ev.RequestID)
	}
}

func (t *idleTracker) start(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.last = t.clock.Now()
}

func (t *idleTracker) finish(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.last = t.clock.Now()
}

// Idle reports whether nothing is in flight and nothing happened for quiet.
func (t *idleTracker) Idle(quiet time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.clock.Since(t.last) >= quiet
}

func (t *idleTracker) Inflight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}
