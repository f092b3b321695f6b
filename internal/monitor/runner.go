// Package monitor runs the travel purchase flow once and reports the outcome.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/rahul/travelcheck/internal/artifacts"
	"github.com/rahul/travelcheck/internal/flow"
	"github.com/rahul/travelcheck/internal/notify"
	"github.com/rahul/travelcheck/internal/observability"
	"github.com/rahul/travelcheck/internal/pagetext"
	"github.com/rahul/travelcheck/internal/scheduler"
	"github.com/rahul/travelcheck/internal/triage"
	"github.com/rahul/travelcheck/internal/ui"
)

// Page is a browser page owned by a single run.
type Page interface {
	ui.Page
	Close() error
}

// Launcher opens a fresh browser for one run.
type Launcher func(ctx context.Context) (Page, error)

// Recorder keeps the run history.
type Recorder interface {
	Record(ctx context.Context, r flow.Result) error
	ConsecutiveFailures(ctx context.Context) (int, error)
}

// Explainer turns a failure into a short likely cause.
type Explainer interface {
	Explain(ctx context.Context, in triage.Input) (string, error)
}

// Sender delivers reports. It never fails.
type Sender interface {
	Send(ctx context.Context, r notify.Report) int
	Names() []string
}

// reportTimeout bounds the work done after the flow ended: error screenshot,
// triage, storage and notification.
const reportTimeout = 90 * time.Second

// Config is the configuration of the Runner.
type Config struct {
	Launch      Launcher
	Steps       []flow.Step
	Screenshots *artifacts.Screenshots
	Notifier    Sender
	// Store, Triage, Events and Status are optional.
	Store        Recorder
	Triage       Explainer
	Events       *observability.EventLog
	Status       *observability.Status
	Environment  string
	TargetURL    string
	ExcerptLimit int
	Clock        clockwork.Clock
	Logger       logrus.FieldLogger
}

func (c *Config) defaults() error {
	if c.Launch == nil {
		return fmt.Errorf("launcher is required")
	}
	if c.Screenshots == nil {
		return fmt.Errorf("screenshots are required")
	}
	if c.Notifier == nil {
		return fmt.Errorf("notifier is required")
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.TargetURL == "" {
		c.TargetURL = flow.TargetURL
	}
	if c.ExcerptLimit == 0 {
		c.ExcerptLimit = pagetext.DefaultLimit
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	c.Logger = c.Logger.WithField("svc", "monitor.Runner")
	return nil
}

// Runner executes the flow, one run at a time.
type Runner struct {
	cfg Config
}

func New(cfg Config) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	// Validate the step sequence once.
	if _, err := flow.NewExecutor(flow.ExecutorConfig{Steps: cfg.Steps, Shooter: cfg.Screenshots}); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Runner{cfg: cfg}, nil
}

// Job adapts the runner to the scheduler.
func (r *Runner) Job() scheduler.Job {
	return func(ctx context.Context) error {
		_, err := r.Run(ctx)
		return err
	}
}

// Run executes one run. The result is always complete, whether the run
// passed or not; the error is the reason it failed.
func (r *Runner) Run(ctx context.Context) (flow.Result, error) {
	start := r.cfg.Clock.Now()
	id := ulid.MustNew(ulid.Timestamp(start), ulid.DefaultEntropy()).String()
	logger := r.cfg.Logger.WithField("run_id", id)
	r.event(logger, func(l *observability.EventLog) error { return l.RunStarted(id, r.cfg.TargetURL) })

	trace, page, runErr := r.execute(ctx, id, logger)
	if page != nil {
		defer func() {
			if err := page.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close browser")
			}
		}()
	}
	duration := r.cfg.Clock.Since(start)

	// The report must go out even when ctx was cancelled mid run.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	res := flow.Result{
		ID:             id,
		Status:         flow.StatusPassed,
		StartedAt:      start,
		Duration:       duration,
		CompletedSteps: flow.Labels(trace.Completed),
		Screenshots:    trace.Screenshots,
	}
	report := notify.Report{
		Environment:   r.cfg.Environment,
		TargetURL:     r.cfg.TargetURL,
		ScreenshotDir: r.cfg.Screenshots.Dir,
	}

	if runErr == nil {
		logger.Info("Test completed successfully!")
		logger.Infof("Duration: %.1f seconds", duration.Seconds())
		logger.Infof("Screenshots saved in: %s/", r.cfg.Screenshots.Dir)
	} else {
		res.Status = flow.StatusFailed
		res.FailedStep = flow.Classify(runErr)
		res.ErrorText = runErr.Error()
		logger.Errorf("❌ Test failed at %s: %v", res.FailedStep, runErr)

		if page != nil {
			if shot, err := r.cfg.Screenshots.Capture(rctx, page, "error"); err != nil {
				logger.WithError(err).Warn("Failed to capture error screenshot")
			} else {
				logger.Infof("Error screenshot saved: %s", shot)
				res.Screenshots = append(res.Screenshots, shot)
				report.ErrorScreenshot = shot
				r.event(logger, func(l *observability.EventLog) error { return l.Screenshot(id, shot) })
			}
			report.Excerpt = r.excerpt(rctx, page, logger)
		}
		report.Hint = r.explain(rctx, res, report.Excerpt, logger)
	}

	report.Streak = r.record(rctx, res, logger)
	report.Result = res
	report.SentAt = r.cfg.Clock.Now()

	r.event(logger, func(l *observability.EventLog) error {
		return l.RunFinished(id, string(res.Status), res.Duration, res.FailedStep, res.ErrorText)
	})
	sent := r.cfg.Notifier.Send(rctx, report)
	r.event(logger, func(l *observability.EventLog) error {
		return l.Notification(id, sent, len(r.cfg.Notifier.Names()))
	})

	return res, runErr
}

// execute launches the browser and walks the steps. The returned page, when
// not nil, must be closed by the caller.
func (r *Runner) execute(ctx context.Context, id string, logger logrus.FieldLogger) (flow.Trace, Page, error) {
	exec, err := flow.NewExecutor(flow.ExecutorConfig{
		Steps:   r.cfg.Steps,
		Shooter: r.cfg.Screenshots,
		Now:     r.cfg.Clock.Now,
		Logger:  logger,
		OnStep: func(s flow.Step) {
			if r.cfg.Status != nil {
				r.cfg.Status.Step(s.Label)
			}
			r.event(logger, func(l *observability.EventLog) error { return l.Step(id, s.Ordinal, s.Label) })
		},
	})
	if err != nil {
		return flow.Trace{}, nil, err
	}

	page, err := r.cfg.Launch(ctx)
	if err != nil {
		return flow.Trace{}, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	trace, err := exec.Execute(ctx, page)
	for _, shot := range trace.Screenshots {
		r.event(logger, func(l *observability.EventLog) error { return l.Screenshot(id, shot) })
	}
	if err != nil {
		return trace, page, err
	}

	shot, err := r.cfg.Screenshots.Capture(ctx, page, "success")
	if err != nil {
		last := r.cfg.Steps[len(r.cfg.Steps)-1]
		return trace, page, &flow.StepError{Step: last, Action: "success screenshot", Err: err}
	}
	trace.Screenshots = append(trace.Screenshots, shot)
	r.event(logger, func(l *observability.EventLog) error { return l.Screenshot(id, shot) })
	return trace, page, nil
}

func (r *Runner) excerpt(ctx context.Context, page Page, logger logrus.FieldLogger) string {
	html, err := page.HTML(ctx)
	if err != nil {
		logger.WithError(err).Debug("Page content unavailable")
		return ""
	}
	text, err := pagetext.Extract(html, r.cfg.TargetURL, r.cfg.ExcerptLimit)
	if err != nil {
		logger.WithError(err).Debug("Failed to extract page text")
		return ""
	}
	return text
}

func (r *Runner) explain(ctx context.Context, res flow.Result, excerpt string, logger logrus.FieldLogger) string {
	if r.cfg.Triage == nil {
		return ""
	}
	hint, err := r.cfg.Triage.Explain(ctx, triage.Input{
		Step:     res.FailedStep,
		Error:    res.ErrorText,
		PageText: excerpt,
	})
	if err != nil {
		logger.WithError(err).Warn("Failure triage unavailable")
		return ""
	}
	return hint
}

// record stores res and returns the current failure streak.
func (r *Runner) record(ctx context.Context, res flow.Result, logger logrus.FieldLogger) int {
	if r.cfg.Store == nil {
		return 0
	}
	if err := r.cfg.Store.Record(ctx, res); err != nil {
		logger.WithError(err).Warn("Failed to record run")
		return 0
	}
	n, err := r.cfg.Store.ConsecutiveFailures(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to count consecutive failures")
		return 0
	}
	return n
}

func (r *Runner) event(logger logrus.FieldLogger, fn func(*observability.EventLog) error) {
	if r.cfg.Events == nil {
		return
	}
	if err := fn(r.cfg.Events); err != nil {
		logger.WithError(err).Warn("Failed to write run event")
	}
}
