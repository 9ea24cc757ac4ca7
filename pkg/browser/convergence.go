package browser

import (
	"context"
	"time"
)

// PollFunc counts the priced items currently visible on the page.
type PollFunc func(ctx context.Context) (int, error)

// ScrollFunc triggers one "load more" action, usually a viewport scroll.
type ScrollFunc func(ctx context.Context) error

// ConvergeOptions tunes the lazy-load convergence loop.
type ConvergeOptions struct {
	// MaxRounds is the hard cap on scroll iterations. Defaults to 100.
	MaxRounds int
	// StableLimit is how many consecutive non-increasing polls end the
	// loop. Defaults to 5.
	StableLimit int
	// Interval is the wait between a scroll and its re-count, giving lazy
	// content time to render. Zero means no wait (tests).
	Interval time.Duration
}

// ConvergeResult reports how the loop ended.
type ConvergeResult struct {
	Count        int  // final visible item count
	Rounds       int  // scroll iterations performed
	ReachedLimit bool // true when MaxRounds ended the loop, not stability
}

// Converge drives scroll/poll cycles until the visible item count stops
// growing. Each poll that increases the count resets the stable-round
// counter; each poll that does not increments it. The loop ends when the
// counter reaches StableLimit or after MaxRounds, whichever comes first.
// Ending too early silently truncates the catalog, so the stable-round
// bookkeeping here is deliberate and covered by tests.
func Converge(ctx context.Context, scroll ScrollFunc, poll PollFunc, opts ConvergeOptions) (ConvergeResult, error) {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 100
	}
	stableLimit := opts.StableLimit
	if stableLimit <= 0 {
		stableLimit = 5
	}

	var result ConvergeResult
	prev, err := poll(ctx)
	if err != nil {
		return result, err
	}
	result.Count = prev

	stableRounds := 0
	for round := 0; round < maxRounds; round++ {
		if err := scroll(ctx); err != nil {
			return result, err
		}
		if opts.Interval > 0 {
			select {
			case <-time.After(opts.Interval):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		count, err := poll(ctx)
		if err != nil {
			return result, err
		}
		result.Rounds = round + 1
		result.Count = count

		if count > prev {
			prev = count
			stableRounds = 0
		} else {
			stableRounds++
		}
		if stableRounds >= stableLimit {
			return result, nil
		}
	}
	result.ReachedLimit = true
	return result, nil
}
