// Package scheduler runs a job at startup and then at a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Observer is told every time the scheduler changes state.
type Observer interface {
	Running()
	Idle(next time.Time, err error)
}

type noopObserver struct{}

func (noopObserver) Running()              {}
func (noopObserver) Idle(time.Time, error) {}

var separator = strings.Repeat("=", 80)

// Config is the configuration of the Scheduler.
type Config struct {
	Job      Job
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   logrus.FieldLogger
	Observer Observer
}

func (c *Config) defaults() error {
	if c.Job == nil {
		return fmt.Errorf("job is required")
	}
	if c.Interval == 0 {
		c.Interval = time.Hour
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	c.Logger = c.Logger.WithField("svc", "scheduler.Scheduler")
	if c.Observer == nil {
		c.Observer = noopObserver{}
	}
	return nil
}

// Scheduler runs one job at a time. The next run is due one interval after
// the previous one finished.
type Scheduler struct {
	job      Job
	interval time.Duration
	clock    clockwork.Clock
	logger   logrus.FieldLogger
	observer Observer
	runs     atomic.Int64
}

func New(cfg Config) (*Scheduler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Scheduler{
		job:      cfg.Job,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}, nil
}

// Runs returns how many times the job has been started.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Start blocks until ctx is done. A failing job never stops the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Running initial test on startup...")
	s.runOnce(ctx)

	timer := s.clock.NewTimer(s.interval)
	defer timer.Stop()

	s.logger.Infof("Scheduler initialized - Next run in %s", every(s.interval))
	s.logger.Info(separator)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-timer.Chan():
			s.runOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	n := s.runs.Add(1)
	logger := s.logger.WithField("run", n)

	logger.Info(separator)
	logger.Infof("Starting scheduled test at %s", s.clock.Now().Format("2006-01-02 15:04:05"))
	logger.Info(separator)
	s.observer.Running()

	err := s.safeRun(ctx)
	if err != nil {
		logger.Errorf("❌ Test failed: %v", err)
	} else {
		logger.Info("Test completed successfully!")
	}

	logger.Info(separator)
	s.observer.Idle(s.clock.Now().Add(s.interval), err)
}

func (s *Scheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return s.job(ctx)
}

// every renders an interval the way people say it: "1 hour", "30 minutes".
func every(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
