package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Listing pages render prices client-side, so counting currency markers in
// the DOM is the cheapest signal that lazy-loaded items have appeared.
const countPricedJS = `() => (document.body.innerText.match(/₹\s*\d/g) || []).length`

const scrollJS = `() => window.scrollBy(0, Math.floor(window.innerHeight * 0.9))`

// Browser drives a headless Chromium page through the lazy-load convergence
// loop and hands back the settled HTML. It satisfies tracker.Fetcher.
type Browser struct {
	browser *rod.Browser

	// Location is typed into the delivery-location input when the page
	// shows one. Best effort; pages without the input are left alone.
	Location string

	// Scroll loop tuning, passed through to Converge.
	MaxScrolls   int
	StableRounds int
	ScrollWait   time.Duration

	// InitialWait gives the page its first render before polling starts.
	InitialWait time.Duration
}

// Launch starts a Chromium instance. Callers own the returned Browser and
// must Close it.
func Launch(headless bool) (*Browser, error) {
	u, err := launcher.New().Headless(headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return &Browser{
		browser:     b,
		ScrollWait:  1500 * time.Millisecond,
		InitialWait: 3 * time.Second,
	}, nil
}

func (b *Browser) Close() error {
	if b == nil || b.browser == nil {
		return nil
	}
	return b.browser.Close()
}

// Fetch opens a category listing page, lets lazy loading converge and
// returns the final HTML.
func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", url, err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("waiting for %s: %w", url, err)
	}
	if b.InitialWait > 0 {
		select {
		case <-time.After(b.InitialWait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	b.setLocation(page)

	scroll := func(ctx context.Context) error {
		_, err := page.Eval(scrollJS)
		return err
	}
	poll := func(ctx context.Context) (int, error) {
		obj, err := page.Eval(countPricedJS)
		if err != nil {
			return 0, err
		}
		return obj.Value.Int(), nil
	}

	if _, err := Converge(ctx, scroll, poll, ConvergeOptions{
		MaxRounds:   b.MaxScrolls,
		StableLimit: b.StableRounds,
		Interval:    b.ScrollWait,
	}); err != nil {
		return "", fmt.Errorf("scrolling %s: %w", url, err)
	}

	return page.HTML()
}

// setLocation fills the delivery-location input when present. Failures are
// swallowed: a page without the prompt serves a default location, which is
// still a usable catalog.
func (b *Browser) setLocation(page *rod.Page) {
	if b.Location == "" {
		return
	}
	el, err := page.Timeout(3 * time.Second).Element(`input[placeholder*="Enter location" i]`)
	if err != nil {
		return
	}
	if err := el.Input(b.Location); err != nil {
		return
	}
	_ = el.Type(input.Enter)
	time.Sleep(2 * time.Second)
}
