// Package browser drives a real Chrome through chromedp and implements
// ui.Page on top of it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/rahul/travelcheck/internal/ui"
)

// Options configures a browser session.
type Options struct {
	Headless bool
	// ActionTimeout bounds every single page operation.
	ActionTimeout time.Duration
	// IdleQuiet is how long the network must be silent to count as idle.
	IdleQuiet    time.Duration
	IdleTimeout  time.Duration
	PollInterval time.Duration
	Logger       logrus.FieldLogger
	Clock        clockwork.Clock
}

func (o *Options) defaults() {
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 30 * time.Second
	}
	if o.IdleQuiet <= 0 {
		o.IdleQuiet = 500 * time.Millisecond
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
	}
	o.Logger = o.Logger.WithField("svc", "browser.Session")
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
}

// Session owns one browser process with a single tab.
type Session struct {
	opts Options
	idle *idleTracker

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
}

var _ ui.Page = (*Session)(nil)

// Launch starts a browser. The caller must Close the session.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	opts.defaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.WindowSize(1366, 900),
	)

	s := &Session{opts: opts, idle: newIdleTracker(opts.Clock)}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	s.allocCancel = allocCancel
	s.ctx, s.cancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(opts.Logger.Debugf),
		chromedp.WithErrorf(opts.Logger.Warnf),
	)
	chromedp.ListenTarget(s.ctx, s.idle.handle)

	if err := chromedp.Run(s.ctx, network.Enable(), accessibility.Enable()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	opts.Logger.Debugf("Browser started (headless=%t)", opts.Headless)
	return s, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = chromedp.Cancel(s.ctx)
		s.cancel()
		s.allocCancel()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// run executes actions with the per-action timeout, honouring ctx as well.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	actx, cancel := context.WithTimeout(s.ctx, s.opts.ActionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(actx, actions...)
}

func (s *Session) Goto(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (s *Session) WaitIdle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.IdleTimeout)
	defer cancel()

	ticker := s.opts.Clock.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.idle.Idle(s.opts.IdleQuiet) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for network idle with %d requests in flight: %w", s.idle.Inflight(), ctx.Err())
		case <-ticker.Chan():
		}
	}
}

func (s *Session) Pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.opts.Clock.After(d):
		return nil
	}
}

func (s *Session) Click(ctx context.Context, loc ui.Locator) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		t, err := s.resolve(ctx, loc, true)
		if err != nil {
			return err
		}
		return chromedp.MouseClickXY(t.x, t.y).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

const clearValueFunction = `function() {
	if ("value" in this) {
		this.value = "";
		this.dispatchEvent(new Event("input", { bubbles: true }));
	}
}`

const changedFunction = `function() {
	this.dispatchEvent(new Event("change", { bubbles: true }));
	this.blur && this.blur();
}`

func (s *Session) Fill(ctx context.Context, loc ui.Locator, value string) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		t, err := s.resolve(ctx, loc, true)
		if err != nil {
			return err
		}
		if err := dom.Focus().WithBackendNodeID(t.id).Do(ctx); err != nil {
			return err
		}
		if err := callOn(ctx, t, clearValueFunction); err != nil {
			return err
		}
		if err := input.InsertText(value).Do(ctx); err != nil {
			return err
		}
		return callOn(ctx, t, changedFunction)
	}))
	if err != nil {
		return fmt.Errorf("fill %s: %w", loc, err)
	}
	return nil
}

const checkedFunction = `function() {
	return !!this.checked || this.getAttribute("aria-checked") === "true";
}`

func (s *Session) Check(ctx context.Context, loc ui.Locator) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		t, err := s.resolve(ctx, loc, true)
		if err != nil {
			return err
		}
		checked, err := isChecked(ctx, t)
		if err != nil || checked {
			return err
		}
		if err := chromedp.MouseClickXY(t.x, t.y).Do(ctx); err != nil {
			return err
		}
		checked, err = isChecked(ctx, t)
		if err != nil {
			return err
		}
		if !checked {
			return errors.New("element did not become checked")
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("check %s: %w", loc, err)
	}
	return nil
}

func (s *Session) SetFiles(ctx context.Context, loc ui.Locator, files ...string) error {
	abs := make([]string, 0, len(files))
	for _, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("upload %s: %w", f, err)
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("upload %s: %w", f, err)
		}
		abs = append(abs, p)
	}

	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		t, err := s.resolve(ctx, loc, false)
		if err != nil {
			return err
		}
		return dom.SetFileInputFiles(abs).WithBackendNodeID(t.id).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("upload to %s: %w", loc, err)
	}
	return nil
}

func (s *Session) Probe(ctx context.Context, loc ui.Locator, within time.Duration) (bool, error) {
	var found bool
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, within)
		defer cancel()

		_, err := s.resolve(pctx, loc, true)
		switch {
		case errors.Is(err, ui.ErrNotFound):
			return nil
		case err != nil:
			return err
		}
		found = true
		return nil
	}))
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", loc, err)
	}
	return found, nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

func callOn(ctx context.Context, t target, fn string) error {
	obj, err := dom.ResolveNode().WithBackendNodeID(t.id).Do(ctx)
	if err != nil {
		return err
	}
	_, exc, err := runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
	if err != nil {
		return err
	}
	if exc != nil {
		return errors.New(exc.Text)
	}
	return nil
}

func isChecked(ctx context.Context, t target) (bool, error) {
	obj, err := dom.ResolveNode().WithBackendNodeID(t.id).Do(ctx)
	if err != nil {
		return false, err
	}
	res, exc, err := runtime.CallFunctionOn(checkedFunction).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return false, err
	}
	if exc != nil {
		return false, errors.New(exc.Text)
	}
	return string(res.Value) == "true", nil
}
