package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var _ Page = (*rodPage)(nil)

// stopper is the part of *rod.HijackRouter a page needs.
type stopper interface {
	Stop() error
}

type rodPage struct {
	page       *rod.Page
	router     stopper
	opTimeout  time.Duration
	navTimeout time.Duration
}

func newRodPage(page *rod.Page, opTimeout, navTimeout time.Duration) *rodPage {
	return &rodPage{page: page, opTimeout: opTimeout, navTimeout: navTimeout}
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	ctx, cancel := withTimeout(ctx, p.navTimeout)
	defer cancel()

	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: load %s: %w", url, err)
	}
	return nil
}

// first returns the first element matching sel without waiting for it to appear.
func (p *rodPage) first(page *rod.Page, sel Selector) (*rod.Element, error) {
	var (
		found bool
		el    *rod.Element
		err   error
	)
	if sel.Text == "" {
		found, el, err = page.Has(sel.CSS)
	} else {
		found, el, err = page.HasR(sel.CSS, regexpLiteral(sel.Text))
	}
	if err != nil {
		return nil, fmt.Errorf("browser: query %s: %w", sel, err)
	}
	if !found {
		return nil, nil
	}
	return el, nil
}

// all returns every element matching sel in document order.
func (p *rodPage) all(page *rod.Page, sel Selector) (rod.Elements, error) {
	els, err := page.Elements(sel.CSS)
	if err != nil {
		return nil, fmt.Errorf("browser: query %s: %w", sel, err)
	}
	if sel.Text == "" {
		return els, nil
	}

	filtered := rod.Elements{}
	for _, el := range els {
		text, textErr := el.Text()
		if textErr != nil {
			return nil, fmt.Errorf("browser: text %s: %w", sel, textErr)
		}
		if strings.Contains(text, sel.Text) {
			filtered = append(filtered, el)
		}
	}
	return filtered, nil
}

func (p *rodPage) Text(ctx context.Context, sel Selector) (string, bool, error) {
	ctx, cancel := withTimeout(ctx, p.opTimeout)
	defer cancel()

	el, err := p.first(p.page.Context(ctx), sel)
	if err != nil || el == nil {
		return "", false, err
	}
	text, err := el.Text()
	if err != nil {
		return "", false, fmt.Errorf("browser: text %s: %w", sel, err)
	}
	return text, true, nil
}

func (p *rodPage) Texts(ctx context.Context, sel Selector) ([]string, error) {
	ctx, cancel := withTimeout(ctx, p.opTimeout)
	defer cancel()

	els, err := p.all(p.page.Context(ctx), sel)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, textErr := el.Text()
		if textErr != nil {
			return nil, fmt.Errorf("browser: text %s: %w", sel, textErr)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (p *rodPage) Attribute(ctx context.Context, sel Selector, name string) (string, bool, error) {
	ctx, cancel := withTimeout(ctx, p.opTimeout)
	defer cancel()

	el, err := p.first(p.page.Context(ctx), sel)
	if err != nil || el == nil {
		return "", false, err
	}
	value, err := el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("browser: attribute %s of %s: %w", name, sel, err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (p *rodPage) Attributes(ctx context.Context, sel Selector, name string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, p.opTimeout)
	defer cancel()

	els, err := p.all(p.page.Context(ctx), sel)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(els))
	for _, el := range els {
		value, attrErr := el.Attribute(name)
		if attrErr != nil {
			return nil, fmt.Errorf("browser: attribute %s of %s: %w", name, sel, attrErr)
		}
		if value != nil {
			values = append(values, *value)
		}
	}
	return values, nil
}

func (p *rodPage) Click(ctx context.Context, sel Selector) (bool, error) {
	ctx, cancel := withTimeout(ctx, p.opTimeout)
	defer cancel()

	el, err := p.first(p.page.Context(ctx), sel)
	if err != nil || el == nil {
		return false, err
	}
	if err = el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, fmt.Errorf("browser: click %s: %w", sel, err)
	}
	return true, nil
}

func (p *rodPage) Exists(ctx context.Context, sel Selector) (bool, error) {
	ctx, cancel := withTimeout(ctx, p.opTimeout)
	defer cancel()

	el, err := p.first(p.page.Context(ctx), sel)
	return el != nil, err
}

func (p *rodPage) WaitForSelector(ctx context.Context, sel Selector, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	page := p.page.Context(ctx)
	var err error
	if sel.Text == "" {
		_, err = page.Element(sel.CSS)
	} else {
		_, err = page.ElementR(sel.CSS, regexpLiteral(sel.Text))
	}
	if err != nil {
		return fmt.Errorf("browser: wait for %s: %w", sel, err)
	}
	return nil
}

func (p *rodPage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	if err := p.page.Context(ctx).WaitIdle(timeout); err != nil {
		return fmt.Errorf("browser: wait idle: %w", err)
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, sel Selector, value string) error {
	ctx, cancel := withTimeout(ctx, p.opTimeout)
	defer cancel()

	el, err := p.first(p.page.Context(ctx), sel)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("browser: fill %s: element not found", sel)
	}
	if err = el.SelectAllText(); err != nil {
		return fmt.Errorf("browser: fill %s: %w", sel, err)
	}
	if err = el.Input(value); err != nil {
		return fmt.Errorf("browser: fill %s: %w", sel, err)
	}
	return nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	ctx, cancel := withTimeout(ctx, p.opTimeout)
	defer cancel()

	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: html: %w", err)
	}
	return html, nil
}

func (p *rodPage) Close() error {
	return errors.Join(p.stopRouter(), p.page.Close())
}

// stopRouter stops request hijacking once; later calls are no-ops.
func (p *rodPage) stopRouter() error {
	if p.router == nil {
		return nil
	}
	router := p.router
	p.router = nil
	if err := router.Stop(); err != nil {
		return fmt.Errorf("browser: stop request router: %w", err)
	}
	return nil
}

// regexpLiteral escapes text for use as a JavaScript regular expression.
func regexpLiteral(text string) string {
	var b strings.Builder
	for _, r := range text {
		if strings.ContainsRune(`\^$.|?*+()[]{}/`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
