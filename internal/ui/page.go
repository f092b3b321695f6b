// Package ui holds the browser-neutral contract the purchase flow is written
// against. The chromedp backend lives in internal/browser; tests use uitest.
package ui

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a locator matches nothing before the deadline.
var ErrNotFound = errors.New("element not found")

// Page is a single browser tab.
type Page interface {
	Goto(ctx context.Context, url string) error
	// WaitIdle blocks until the page has had no network traffic for a short
	// quiet period.
	WaitIdle(ctx context.Context) error
	Pause(ctx context.Context, d time.Duration) error

	Fill(ctx context.Context, loc Locator, value string) error
	Click(ctx context.Context, loc Locator) error
	Check(ctx context.Context, loc Locator) error
	SetFiles(ctx context.Context, loc Locator, files ...string) error
	// Probe reports whether loc shows up within the given time. Absence is
	// not an error.
	Probe(ctx context.Context, loc Locator, within time.Duration) (bool, error)

	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
}
