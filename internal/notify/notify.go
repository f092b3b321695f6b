// Package notify formats run reports and delivers them to chat services.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rahul/travelcheck/internal/flow"
)

const (
	emojiPassed = "✅"
	emojiFailed = "❌"
	title       = "Travel Insurance Test"
	// SentAtLayout renders the timestamp of a notification.
	SentAtLayout = "2006-01-02 15:04:05"
)

// Caps on the free text parts of a failure body. They keep the body inside
// the smallest sink limit so the fixed lines always survive.
const (
	errorTextLimit = 1200
	hintLimit      = 300
	excerptLimit   = 800
)

// Report is everything a notification says about one run.
type Report struct {
	Result          flow.Result
	Environment     string
	TargetURL       string
	ScreenshotDir   string
	ErrorScreenshot string
	// Streak is the number of consecutive failed runs, this one included.
	Streak  int
	Hint    string
	Excerpt string
	SentAt  time.Time
}

// Emoji is the status marker used in titles.
func (r Report) Emoji() string {
	if r.Result.Passed() {
		return emojiPassed
	}
	return emojiFailed
}

// Summary is the plain fallback text shown by clients that cannot render blocks.
func (r Report) Summary() string {
	return fmt.Sprintf("%s *%s*", r.Emoji(), title)
}

func (r Report) Title() string {
	return fmt.Sprintf("%s %s Alert", r.Emoji(), title)
}

func (r Report) environment() string {
	return cases.Title(language.English).String(r.Environment)
}

// Body renders the markdown body shared by every sink.
func (r Report) Body() string {
	var b strings.Builder
	res := r.Result

	if res.Passed() {
		fmt.Fprintf(&b, "*Test Status:* %s ✓\n", flow.StatusPassed)
		fmt.Fprintf(&b, "*Duration:* %.1f seconds\n", res.Duration.Seconds())
		fmt.Fprintf(&b, "*Environment:* %s\n", r.environment())
		fmt.Fprintf(&b, "*URL:* %s\n", r.TargetURL)
		b.WriteString("*All Steps Completed:*\n")
		for _, s := range res.CompletedSteps {
			fmt.Fprintf(&b, "  ✓ %s\n", s)
		}
		fmt.Fprintf(&b, "\nScreenshots saved in: `%s/`", strings.TrimSuffix(r.ScreenshotDir, "/"))
		return b.String()
	}

	fmt.Fprintf(&b, "*Test Status:* %s ✗\n", flow.StatusFailed)
	fmt.Fprintf(&b, "*Failed At:* %s\n", res.FailedStep)
	fmt.Fprintf(&b, "*Duration:* %.1f seconds\n", res.Duration.Seconds())
	fmt.Fprintf(&b, "*Environment:* %s\n", r.environment())
	fmt.Fprintf(&b, "*URL:* %s\n", r.TargetURL)
	if r.Streak > 1 {
		fmt.Fprintf(&b, "*Consecutive Failures:* %d\n", r.Streak)
	}
	fmt.Fprintf(&b, "*Error Details:*\n```%s```\n", clip(res.ErrorText, errorTextLimit))
	if r.Hint != "" {
		fmt.Fprintf(&b, "*Likely Cause:* %s\n", clip(r.Hint, hintLimit))
	}
	if r.Excerpt != "" {
		fmt.Fprintf(&b, "*Page Excerpt:*\n```%s```\n", clip(r.Excerpt, excerptLimit))
	}
	if r.ErrorScreenshot != "" {
		fmt.Fprintf(&b, "\n📸 Error screenshot: `%s`", r.ErrorScreenshot)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Notifier delivers a report to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, r Report) error
}

// Dispatcher sends a report to every notifier. Delivery problems are logged
// and never reach the caller.
type Dispatcher struct {
	notifiers []Notifier
	logger    logrus.FieldLogger
}

func NewDispatcher(logger logrus.FieldLogger, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{
		notifiers: notifiers,
		logger:    logger.WithField("svc", "notify.Dispatcher"),
	}
}

// Names lists the configured notifiers.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Send delivers r and reports how many notifiers accepted it.
func (d *Dispatcher) Send(ctx context.Context, r Report) int {
	if len(d.notifiers) == 0 {
		d.logger.Warn("No notifier configured, skipping notification")
		return 0
	}

	sent := 0
	for _, n := range d.notifiers {
		if err := d.notify(ctx, n, r); err != nil {
			d.logger.WithError(err).Errorf("%s Failed to send %s notification", emojiFailed, n.Name())
			continue
		}
		sent++
		d.logger.Infof("%s %s notification sent successfully!", emojiPassed, cases.Title(language.English).String(n.Name()))
	}
	return sent
}

func (d *Dispatcher) notify(ctx context.Context, n Notifier, r Report) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notifier panicked: %v", p)
		}
	}()
	return n.Notify(ctx, r)
}
