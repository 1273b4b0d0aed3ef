// Package browser exposes the page-interaction capability the scrapers run
// on. The rod-backed implementation launches or connects to Chrome and opens
// stealth pages; tests use the generated MockPage.
package browser

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=../../testutils/mocks/browser/page.go -package=browser github.com/FrederikBertelsen/bgg-analysis-dash/internal/browser Page

// ErrNotStarted is returned by NewPage before Start or after Close.
var ErrNotStarted = errors.New("browser: not started")

// Selector locates elements by CSS, optionally narrowed to elements whose
// text contains Text.
type Selector struct {
	CSS  string
	Text string
}

// CSS selects elements matching a CSS selector.
func CSS(css string) Selector {
	return Selector{CSS: css}
}

// ElementWithText selects elements matching css whose text contains text.
func ElementWithText(css, text string) Selector {
	return Selector{CSS: css, Text: text}
}

func (s Selector) String() string {
	if s.Text == "" {
		return s.CSS
	}
	return s.CSS + ` has-text "` + s.Text + `"`
}

// Page is a single browser tab. Lookups never wait: a missing element is
// reported as absent (false or an empty slice), not as an error.
type Page interface {
	// Navigate loads url and waits for the document to load.
	Navigate(ctx context.Context, url string) error
	// Text returns the text of the first matching element.
	Text(ctx context.Context, sel Selector) (string, bool, error)
	// Texts returns the text of every matching element in document order.
	Texts(ctx context.Context, sel Selector) ([]string, error)
	// Attribute returns an attribute of the first matching element.
	Attribute(ctx context.Context, sel Selector, name string) (string, bool, error)
	// Attributes returns an attribute of every matching element that has it.
	Attributes(ctx context.Context, sel Selector, name string) ([]string, error)
	// Click clicks the first matching element and reports whether one existed.
	Click(ctx context.Context, sel Selector) (bool, error)
	Exists(ctx context.Context, sel Selector) (bool, error)
	WaitForSelector(ctx context.Context, sel Selector, timeout time.Duration) error
	// WaitIdle waits until the page has been idle or timeout elapses.
	WaitIdle(ctx context.Context, timeout time.Duration) error
	// Fill replaces the value of the first matching input.
	Fill(ctx context.Context, sel Selector, value string) error
	// HTML returns the serialized DOM.
	HTML(ctx context.Context) (string, error)
	Close() error
}
