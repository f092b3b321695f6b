package flow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahul/travelcheck/internal/ui"
)

// Shooter stores a full-page screenshot under name and returns its path.
type Shooter interface {
	Capture(ctx context.Context, p ui.Page, name string) (string, error)
}

// ExecutorConfig is the configuration of the Executor.
type ExecutorConfig struct {
	Steps   []Step
	Shooter Shooter
	Now     func() time.Time
	Logger  logrus.FieldLogger
	// OnStep is called with every step right before it starts.
	OnStep func(Step)
}

func (c *ExecutorConfig) defaults() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, s := range c.Steps {
		if s.Ordinal != i+1 {
			return fmt.Errorf("step %q has ordinal %d, expected %d", s.Label, s.Ordinal, i+1)
		}
	}
	if c.Shooter == nil {
		return fmt.Errorf("shooter is required")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	c.Logger = c.Logger.WithField("svc", "flow.Executor")
	if c.OnStep == nil {
		c.OnStep = func(Step) {}
	}
	return nil
}

// Executor runs a fixed step sequence against a page.
type Executor struct {
	steps   []Step
	shooter Shooter
	now     func() time.Time
	logger  logrus.FieldLogger
	onStep  func(Step)
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Executor{
		steps:   cfg.Steps,
		shooter: cfg.Shooter,
		now:     cfg.Now,
		logger:  cfg.Logger,
		onStep:  cfg.OnStep,
	}, nil
}

// Steps returns the sequence the executor runs.
func (e *Executor) Steps() []Step { return e.steps }

// Trace is what a (possibly partial) execution got through.
type Trace struct {
	Completed   []Step
	Screenshots []string
}

// Execute runs every step in order and stops at the first failure, which is
// returned as a *StepError. Every step takes one screenshot named after its
// ordinal, at its Capture marker or else once the step has completed.
func (e *Executor) Execute(ctx context.Context, p ui.Page) (trace Trace, err error) {
	env := Env{Now: e.now}

	var current Step
	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Step: current, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	for _, step := range e.steps {
		current = step
		e.onStep(step)
		e.logger.Infof("%s", step.Label)

		captured := false
		for _, action := range step.Actions {
			if _, ok := action.(Capture); ok {
				if err := e.capture(ctx, p, step, &trace); err != nil {
					return trace, err
				}
				captured = true
				continue
			}
			e.logger.Debugf("%s: %s", step.Label, action)
			if err := action.Do(ctx, p, env); err != nil {
				return trace, &StepError{Step: step, Action: action.String(), Err: err}
			}
		}
		if !captured {
			if err := e.capture(ctx, p, step, &trace); err != nil {
				return trace, err
			}
		}
		trace.Completed = append(trace.Completed, step)
	}

	return trace, nil
}

func (e *Executor) capture(ctx context.Context, p ui.Page, step Step, trace *Trace) error {
	path, err := e.shooter.Capture(ctx, p, strconv.Itoa(step.Ordinal))
	if err != nil {
		return &StepError{Step: step, Action: "screenshot", Err: err}
	}
	trace.Screenshots = append(trace.Screenshots, path)
	return nil
}
