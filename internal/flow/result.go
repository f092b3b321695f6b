package flow

import (
	"errors"
	"fmt"
	"time"
)

// Status is the binary outcome of a run.
type Status string

const (
	StatusPassed Status = "Passed"
	StatusFailed Status = "Failed"
)

// Result summarises one run. It is built once when the run ends.
type Result struct {
	ID             string
	Status         Status
	StartedAt      time.Time
	Duration       time.Duration
	CompletedSteps []string
	FailedStep     string
	ErrorText      string
	Screenshots    []string
}

func (r Result) Passed() bool { return r.Status == StatusPassed }

// StepError is returned by the executor when a step cannot finish.
type StepError struct {
	Step   Step
	Action string
	Err    error
}

func (e *StepError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %v", e.Step.Label, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step.Label, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep returns the step carried by err, if any.
func FailedStep(err error) (Step, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return Step{}, false
}
