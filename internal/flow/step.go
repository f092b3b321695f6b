package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rahul/travelcheck/internal/ui"
)

// Step is one labelled stage of the purchase flow.
type Step struct {
	Ordinal int
	Label   string
	Actions []Action
}

// Env is what actions may read besides the page.
type Env struct {
	Now func() time.Time
}

// Action is a single declarative UI operation.
type Action interface {
	Do(ctx context.Context, p ui.Page, env Env) error
	String() string
}

// Capture marks where the step screenshot is taken. Steps without one are
// captured after their last action.
type Capture struct{}

func (Capture) Do(context.Context, ui.Page, Env) error { return nil }
func (Capture) String() string                         { return "step screenshot" }

type Goto struct{ URL string }

func (a Goto) Do(ctx context.Context, p ui.Page, _ Env) error { return p.Goto(ctx, a.URL) }
func (a Goto) String() string                                 { return "goto " + a.URL }

type WaitIdle struct{}

func (WaitIdle) Do(ctx context.Context, p ui.Page, _ Env) error { return p.WaitIdle(ctx) }
func (WaitIdle) String() string                                 { return "wait for network idle" }

type Pause struct{ D time.Duration }

func (a Pause) Do(ctx context.Context, p ui.Page, _ Env) error { return p.Pause(ctx, a.D) }
func (a Pause) String() string                                 { return "pause " + a.D.String() }

type Fill struct {
	Target ui.Locator
	Value  string
}

func (a Fill) Do(ctx context.Context, p ui.Page, _ Env) error {
	return p.Fill(ctx, a.Target, a.Value)
}
func (a Fill) String() string { return fmt.Sprintf("fill %s", a.Target) }

// FillDate fills a date relative to the run's current day.
type FillDate struct {
	Target     ui.Locator
	OffsetDays int
}

func (a FillDate) Do(ctx context.Context, p ui.Page, env Env) error {
	return p.Fill(ctx, a.Target, DateFrom(env.Now(), a.OffsetDays))
}
func (a FillDate) String() string {
	return fmt.Sprintf("fill %s with today%+d", a.Target, a.OffsetDays)
}

type Click struct{ Target ui.Locator }

func (a Click) Do(ctx context.Context, p ui.Page, _ Env) error { return p.Click(ctx, a.Target) }
func (a Click) String() string                                 { return fmt.Sprintf("click %s", a.Target) }

type Check struct{ Target ui.Locator }

func (a Check) Do(ctx context.Context, p ui.Page, _ Env) error { return p.Check(ctx, a.Target) }
func (a Check) String() string                                 { return fmt.Sprintf("check %s", a.Target) }

type Upload struct {
	Target ui.Locator
	Files  []string
}

func (a Upload) Do(ctx context.Context, p ui.Page, _ Env) error {
	return p.SetFiles(ctx, a.Target, a.Files...)
}
func (a Upload) String() string {
	return fmt.Sprintf("upload %s to %s", strings.Join(a.Files, ","), a.Target)
}

// Choice picks an entry of a custom dropdown. The option is matched by Label
// when set, otherwise by its 1-based Position among the Option elements.
type Choice struct {
	Trigger  ui.Locator
	Option   string
	Inner    string
	Label    string
	Position int
	Settle   time.Duration
}

// Target returns the locator of the option to click.
func (c Choice) Target() ui.Locator {
	sel := c.Option
	if c.Label == "" {
		sel = fmt.Sprintf("%s:nth-child(%d)", c.Option, c.Position)
	}
	if c.Inner != "" {
		sel += " > " + c.Inner
	}
	loc := ui.CSS(sel)
	if c.Label != "" {
		loc = loc.WithText(c.Label)
	}
	return loc
}

type Choose struct{ Choice Choice }

func (a Choose) Do(ctx context.Context, p ui.Page, _ Env) error {
	if err := p.Click(ctx, a.Choice.Trigger); err != nil {
		return err
	}
	if a.Choice.Settle > 0 {
		if err := p.Pause(ctx, a.Choice.Settle); err != nil {
			return err
		}
	}
	return p.Click(ctx, a.Choice.Target())
}
func (a Choose) String() string {
	return fmt.Sprintf("choose %s from %s", a.Choice.Target(), a.Choice.Trigger)
}

// Dismiss clicks Target only if it shows up within Within.
type Dismiss struct {
	Target ui.Locator
	Within time.Duration
}

func (a Dismiss) Do(ctx context.Context, p ui.Page, _ Env) error {
	present, err := p.Probe(ctx, a.Target, a.Within)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	// The element can go away on its own between the probe and the click.
	if err := p.Click(ctx, a.Target); err != nil && !errors.Is(err, ui.ErrNotFound) {
		return err
	}
	return nil
}
func (a Dismiss) String() string { return fmt.Sprintf("dismiss %s if present", a.Target) }
