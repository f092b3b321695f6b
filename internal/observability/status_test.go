package observability_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/rahul/travelcheck/internal/observability"
)

func TestStatusLifecycle(t *testing.T) {
	assert := assert.New(t)

	clock := clockwork.NewFakeClock()
	s := observability.NewStatus(clock)
	assert.Equal(observability.StateIdle, s.Snapshot().State)

	s.Running()
	s.Step("Step 2: Personal Information")
	snap := s.Snapshot()
	assert.Equal(observability.StateRunning, snap.State)
	assert.Equal("Step 2: Personal Information", snap.Step)
	assert.Equal(clock.Now(), snap.LastRun)

	next := clock.Now().Add(time.Hour)
	s.Idle(next, errors.New("boom"))
	snap = s.Snapshot()
	assert.Equal(observability.StateIdle, snap.State)
	assert.Empty(snap.Step)
	assert.Equal("FAILED", snap.LastOutcome)
	assert.Equal(next, snap.NextRun)

	s.Running()
	s.Idle(next, nil)
	snap = s.Snapshot()
	assert.Equal("PASSED", snap.LastOutcome)
	assert.Equal(2, snap.Runs)
	assert.Equal(1, snap.Failures)
}
