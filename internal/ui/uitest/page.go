// Package uitest provides an in-memory ui.Page for tests.
package uitest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rahul/travelcheck/internal/ui"
)

// Page records every call and fails the ones it has been told to fail.
type Page struct {
	mu    sync.Mutex
	calls []string

	// FailOn maps a locator (rendered with String) or a URL to the error the
	// call touching it returns.
	FailOn map[string]error
	// Present lists locators Probe reports as present.
	Present map[string]bool
	// ScreenshotErr, when set, fails every Screenshot.
	ScreenshotErr error
	Body          string
	// Panic makes the next call touching this locator panic.
	Panic string
}

var _ ui.Page = (*Page)(nil)

func NewPage() *Page {
	return &Page{
		FailOn:  map[string]error{},
		Present: map[string]bool{},
		Body:    "<html><body><p>ok</p></body></html>",
	}
}

// Calls returns a copy of the recorded calls.
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Called reports whether a call starting with prefix was recorded.
func (p *Page) Called(prefix string) bool {
	for _, c := range p.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (p *Page) record(key, call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if p.Panic != "" && p.Panic == key {
		panic(fmt.Sprintf("uitest: panic on %s", key))
	}
	if err, ok := p.FailOn[key]; ok {
		return err
	}
	return nil
}

func (p *Page) Goto(_ context.Context, url string) error {
	return p.record(url, "goto "+url)
}

func (p *Page) WaitIdle(_ context.Context) error {
	return p.record("idle", "idle")
}

func (p *Page) Pause(_ context.Context, d time.Duration) error {
	return p.record("pause", "pause "+d.String())
}

func (p *Page) Fill(_ context.Context, loc ui.Locator, value string) error {
	return p.record(loc.String(), fmt.Sprintf("fill %s = %s", loc, value))
}

func (p *Page) Click(_ context.Context, loc ui.Locator) error {
	return p.record(loc.String(), "click "+loc.String())
}

func (p *Page) Check(_ context.Context, loc ui.Locator) error {
	return p.record(loc.String(), "check "+loc.String())
}

func (p *Page) SetFiles(_ context.Context, loc ui.Locator, files ...string) error {
	return p.record(loc.String(), fmt.Sprintf("upload %s = %s", loc, strings.Join(files, ",")))
}

func (p *Page) Probe(_ context.Context, loc ui.Locator, _ time.Duration) (bool, error) {
	if err := p.record("probe "+loc.String(), "probe "+loc.String()); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Present[loc.String()], nil
}

func (p *Page) Screenshot(_ context.Context) ([]byte, error) {
	if err := p.record("screenshot", "screenshot"); err != nil {
		return nil, err
	}
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return []byte("\x89PNG fake"), nil
}

func (p *Page) HTML(_ context.Context) (string, error) {
	return p.Body, nil
}
