package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/rahul/travelcheck/internal/flow"
	"github.com/rahul/travelcheck/internal/notify"
)

var sentAt = time.Date(2026, 10, 19, 14, 5, 9, 0, time.UTC)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func passedReport() notify.Report {
	return notify.Report{
		Result: flow.Result{
			ID:             "01PASS",
			Status:         flow.StatusPassed,
			Duration:       42340 * time.Millisecond,
			CompletedSteps: flow.Labels(flow.TravelSteps(flow.Documents{})),
		},
		Environment:   "production",
		TargetURL:     flow.TargetURL,
		ScreenshotDir: "screenshots",
		SentAt:        sentAt,
	}
}

func failedReport() notify.Report {
	return notify.Report{
		Result: flow.Result{
			ID:         "01FAIL",
			Status:     flow.StatusFailed,
			Duration:   3 * time.Second,
			FailedStep: flow.StepTravelDetails,
			ErrorText:  "waiting for role=spinbutton[name=\"Traveller\"]: element not found",
		},
		Environment:     "staging",
		TargetURL:       flow.TargetURL,
		ScreenshotDir:   "screenshots",
		ErrorScreenshot: "screenshots/20261019_140509_error.png",
		SentAt:          sentAt,
	}
}

func TestReportPassed(t *testing.T) {
	assert := assert.New(t)
	r := passedReport()

	assert.Equal("✅", r.Emoji())
	assert.Equal("✅ Travel Insurance Test Alert", r.Title())
	assert.Equal("✅ *Travel Insurance Test*", r.Summary())

	body := r.Body()
	assert.Contains(body, "*Test Status:* Passed ✓\n")
	assert.Contains(body, "*Duration:* 42.3 seconds\n")
	assert.Contains(body, "*Environment:* Production\n")
	assert.Contains(body, "*URL:* "+flow.TargetURL+"\n")
	assert.Contains(body, "  ✓ Step 1: Select Cover Type\n")
	assert.Contains(body, "  ✓ Step 8: Payment Processing\n")
	assert.Contains(body, "Screenshots saved in: `screenshots/`")
	assert.NotContains(body, "Failed")
}

func TestReportFailed(t *testing.T) {
	tests := map[string]struct {
		mutate      func(*notify.Report)
		contains    []string
		notContains []string
	}{
		"Bare failure.": {
			contains: []string{
				"*Test Status:* Failed ✗\n",
				"*Failed At:* Step 3: Travel Details\n",
				"*Duration:* 3.0 seconds\n",
				"*Environment:* Staging\n",
				"*Error Details:*\n```waiting for role=spinbutton[name=\"Traveller\"]: element not found```",
				"📸 Error screenshot: `screenshots/20261019_140509_error.png`",
			},
			notContains: []string{"Consecutive Failures", "Likely Cause", "Page Excerpt", "Passed"},
		},
		"Enriched failure.": {
			mutate: func(r *notify.Report) {
				r.Streak = 3
				r.Hint = "The traveller field was removed."
				r.Excerpt = "Service unavailable"
			},
			contains: []string{
				"*Consecutive Failures:* 3\n",
				"*Likely Cause:* The traveller field was removed.\n",
				"*Page Excerpt:*\n```Service unavailable```",
			},
		},
		"First failure has no streak line and no screenshot.": {
			mutate: func(r *notify.Report) {
				r.Streak = 1
				r.ErrorScreenshot = ""
			},
			notContains: []string{"Consecutive Failures", "📸"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			r := failedReport()
			if test.mutate != nil {
				test.mutate(&r)
			}

			assert.Equal("❌", r.Emoji())
			assert.Equal("❌ Travel Insurance Test Alert", r.Title())
			body := r.Body()
			for _, c := range test.contains {
				assert.Contains(body, c)
			}
			for _, c := range test.notContains {
				assert.NotContains(body, c)
			}
		})
	}
}

func TestReportFailedLongTextKeepsFixedLines(t *testing.T) {
	assert := assert.New(t)

	r := failedReport()
	r.Streak = 2
	r.Result.ErrorText = strings.Repeat("e", 3500)
	r.Hint = strings.Repeat("h", 1000)
	r.Excerpt = strings.Repeat("x", 2000)

	body := r.Body()
	assert.LessOrEqual(utf8.RuneCountInString(body), 3000)
	assert.Contains(body, "*Consecutive Failures:* 2\n")
	assert.Contains(body, "*Likely Cause:* ")
	assert.Equal(4, strings.Count(body, "```"), "code fences must stay balanced")
	assert.True(strings.HasSuffix(body, "📸 Error screenshot: `screenshots/20261019_140509_error.png`"))
}

type fakeNotifier struct {
	name  string
	err   error
	panic bool
	got   []notify.Report
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, r notify.Report) error {
	if f.panic {
		panic("boom")
	}
	r.Result.Status = "tampered"
	f.got = append(f.got, r)
	return f.err
}

func TestDispatcherSend(t *testing.T) {
	assert := assert.New(t)

	ok := &fakeNotifier{name: "ok"}
	broken := &fakeNotifier{name: "broken", err: errors.New("HTTP 500")}
	panicky := &fakeNotifier{name: "panicky", panic: true}
	d := notify.NewDispatcher(quietLogger(), broken, panicky, ok)

	r := failedReport()
	sent := d.Send(context.Background(), r)

	assert.Equal(1, sent)
	assert.Len(ok.got, 1, "a failing notifier does not stop the others")
	assert.Len(broken.got, 1)
	assert.Equal(flow.StatusFailed, r.Result.Status)
	assert.Equal([]string{"broken", "panicky", "ok"}, d.Names())
}

func TestDispatcherWithoutNotifiers(t *testing.T) {
	assert.Equal(t, 0, notify.NewDispatcher(quietLogger()).Send(context.Background(), passedReport()))
}
