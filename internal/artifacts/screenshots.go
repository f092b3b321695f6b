// Package artifacts stores the screenshots a run produces.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/rahul/travelcheck/internal/ui"
)

// TimestampLayout prefixes every screenshot file name.
const TimestampLayout = "20060102_150405"

// Screenshots writes full-page captures to one directory as
// <timestamp>_<name>.png.
type Screenshots struct {
	Dir   string
	clock clockwork.Clock
}

func NewScreenshots(dir string, clock clockwork.Clock) *Screenshots {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Screenshots{Dir: dir, clock: clock}
}

// Path returns where a screenshot called name taken now would be written.
func (s *Screenshots) Path(name string) string {
	ts := s.clock.Now().Format(TimestampLayout)
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.png", ts, name))
}

// Capture takes a screenshot of p and stores it. The file is written under a
// temporary name and renamed so a crash never leaves a truncated PNG behind.
func (s *Screenshots) Capture(ctx context.Context, p ui.Page, name string) (string, error) {
	buf, err := p.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot %q: %w", name, err)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	path := s.Path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to store screenshot: %w", err)
	}
	return path, nil
}
