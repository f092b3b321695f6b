package artifacts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/travelcheck/internal/artifacts"
	"github.com/rahul/travelcheck/internal/ui/uitest"
)

func TestScreenshotsCapture(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	dir := filepath.Join(t.TempDir(), "screenshots")
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 14, 5, 9, 0, time.Local))
	shots := artifacts.NewScreenshots(dir, clock)

	path, err := shots.Capture(context.Background(), uitest.NewPage(), "3")
	require.NoError(err)

	assert.Equal(filepath.Join(dir, "20261019_140509_3.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(err)
	assert.Equal("\x89PNG fake", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(err)
	assert.Len(entries, 1, "no temporary file is left behind")
}

func TestScreenshotsCaptureFailure(t *testing.T) {
	assert := assert.New(t)

	dir := filepath.Join(t.TempDir(), "screenshots")
	page := uitest.NewPage()
	page.ScreenshotErr = errors.New("target closed")

	_, err := artifacts.NewScreenshots(dir, clockwork.NewFakeClock()).Capture(context.Background(), page, "error")

	assert.ErrorIs(err, page.ScreenshotErr)
	_, statErr := os.Stat(dir)
	assert.True(os.IsNotExist(statErr))
}
