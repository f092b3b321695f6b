package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

var radarFrames = []string{"◜", "◝", "◞", "◟"}

const banner = `
 _                        _      _               _
| |_ _ __ __ ___   _____| | ___| |__   ___  ___| | __
| __| '__/ _' \ \ / / _ \ |/ __| '_ \ / _ \/ __| |/ /
| |_| | | (_| |\ V /  __/ | (__| | | |  __/ (__|   <
 \__|_|  \__,_| \_/ \___|_|\___|_| |_|\___|\___|_|\_\

      >> TRAVEL INSURANCE PURCHASE MONITOR <<
`

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func termWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner clears the screen and prints the centred banner.
func PrintBanner(w io.Writer, width int) {
	termMu.Lock()
	defer termMu.Unlock()

	fmt.Fprint(w, "\033[2J\033[H")
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len([]rune(l))) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan, l, colorReset)
	}
}

// StatusLine renders the one line dashboard.
func StatusLine(s Snapshot, now time.Time, frame int, memMB float64) string {
	icon, color := "💤", colorReset
	radar := " "
	if s.State == StateRunning {
		icon, color = "⚙️", colorNeonMag
		radar = radarFrames[frame%len(radarFrames)]
	}

	task := s.Step
	if task == "" {
		task = "Waiting..."
	}
	if r := []rune(task); len(r) > 32 {
		task = string(r[:29]) + "..."
	}

	outcome := s.LastOutcome
	if outcome == "" {
		outcome = "-"
	}

	next := "-"
	if s.State == StateIdle && !s.NextRun.IsZero() {
		next = s.NextRun.Sub(now).Round(time.Second).String()
	}

	return fmt.Sprintf("[%s] %s%s %-7s%s | %s%s%s %-32s | last %-6s | runs %d (%d failed) | next in %s | %.1fMB",
		now.Format("15:04:05"),
		color, icon, s.State, colorReset,
		colorPurple, radar, colorReset, task,
		outcome,
		s.Runs, s.Failures,
		next,
		memMB,
	)
}

// Dashboard keeps a live status line at the top of a terminal while logs
// scroll below it.
type Dashboard struct {
	Status *Status
	Out    *os.File
	Clock  clockwork.Clock
}

// Run draws the dashboard every second until ctx is done.
func (d *Dashboard) Run(ctx context.Context) error {
	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	PrintBanner(d.Out, termWidth(d.Out))
	d.write("\033[12;r\033[12;1H")
	// Only drop the scroll region so the last log lines stay on screen.
	defer d.write("\033[s\033[r\033[u")

	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		line := StatusLine(d.Status.Snapshot(), clock.Now(), frame, float64(m.Alloc)/1024/1024)
		d.write("\033[s\033[10;1H\033[K" + line + "\033[u")

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

func (d *Dashboard) write(s string) {
	termMu.Lock()
	defer termMu.Unlock()
	fmt.Fprint(d.Out, s)
}
