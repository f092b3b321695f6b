package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/travelcheck/internal/flow"
	"github.com/rahul/travelcheck/internal/store"
)

func newStore(t *testing.T) *store.RunStore {
	t.Helper()
	s, err := store.NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var t0 = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func result(id string, status flow.Status, hour int) flow.Result {
	r := flow.Result{
		ID:        id,
		Status:    status,
		StartedAt: t0.Add(time.Duration(hour) * time.Hour),
		Duration:  42300 * time.Millisecond,
	}
	if status == flow.StatusFailed {
		r.FailedStep = "Step 3: Travel Details"
		r.ErrorText = "element not found"
		r.CompletedSteps = []string{"Step 1: Select Cover Type", "Step 2: Personal Information"}
		r.Screenshots = []string{"screenshots/a_1.png", "screenshots/a_2.png", "screenshots/a_error.png"}
	}
	return r
}

func TestRunStoreRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	s := newStore(t)
	want := result("01A", flow.StatusFailed, 0)
	require.NoError(s.Record(ctx, want))

	got, err := s.Recent(ctx, 10)
	require.NoError(err)
	require.Len(got, 1)
	assert.Equal(want.ID, got[0].ID)
	assert.Equal(want.Status, got[0].Status)
	assert.True(want.StartedAt.Equal(got[0].StartedAt))
	assert.Equal(want.Duration, got[0].Duration)
	assert.Equal(want.CompletedSteps, got[0].CompletedSteps)
	assert.Equal(want.FailedStep, got[0].FailedStep)
	assert.Equal(want.ErrorText, got[0].ErrorText)
	assert.Equal(want.Screenshots, got[0].Screenshots)

	assert.Error(s.Record(ctx, want), "same id twice")
}

func TestRunStoreRecentOrder(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newStore(t)
	require.NoError(s.Record(ctx, result("a", flow.StatusPassed, 0)))
	require.NoError(s.Record(ctx, result("c", flow.StatusPassed, 2)))
	require.NoError(s.Record(ctx, result("b", flow.StatusFailed, 1)))

	got, err := s.Recent(ctx, 2)
	require.NoError(err)
	require.Len(got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestRunStoreConsecutiveFailures(t *testing.T) {
	tests := map[string]struct {
		statuses []flow.Status
		exp      int
	}{
		"Empty history has no streak.": {
			exp: 0,
		},
		"Only failures count them all.": {
			statuses: []flow.Status{flow.StatusFailed, flow.StatusFailed},
			exp:      2,
		},
		"A pass resets the streak.": {
			statuses: []flow.Status{flow.StatusFailed, flow.StatusPassed, flow.StatusFailed, flow.StatusFailed, flow.StatusFailed},
			exp:      3,
		},
		"Latest run passed.": {
			statuses: []flow.Status{flow.StatusFailed, flow.StatusPassed},
			exp:      0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()

			s := newStore(t)
			for i, st := range test.statuses {
				require.NoError(s.Record(ctx, result(string(rune('a'+i)), st, i)))
			}

			n, err := s.ConsecutiveFailures(ctx)
			require.NoError(err)
			assert.Equal(t, test.exp, n)
		})
	}
}

func TestNewRunStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "runs.db")
	s, err := store.NewRunStore(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.ConsecutiveFailures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
