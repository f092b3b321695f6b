package observability

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
)

// Snapshot is a copy of the monitor status at one point in time.
type Snapshot struct {
	State       State
	Step        string
	LastOutcome string
	LastRun     time.Time
	NextRun     time.Time
	Runs        int
	Failures    int
}

// Status tracks what the monitor is doing. It is safe for concurrent use.
type Status struct {
	mu    sync.RWMutex
	clock clockwork.Clock
	snap  Snapshot
}

func NewStatus(clock clockwork.Clock) *Status {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Status{clock: clock, snap: Snapshot{State: StateIdle}}
}

// Running marks the start of a run.
func (s *Status) Running() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.State = StateRunning
	s.snap.Step = "Launching browser"
	s.snap.LastRun = s.clock.Now()
	s.snap.Runs++
}

// Step records the step a run is on.
func (s *Status) Step(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Step = label
}

// Idle marks the end of a run.
func (s *Status) Idle(next time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.State = StateIdle
	s.snap.Step = ""
	s.snap.NextRun = next
	if err != nil {
		s.snap.LastOutcome = "FAILED"
		s.snap.Failures++
		return
	}
	s.snap.LastOutcome = "PASSED"
}

func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
