package tracker

import (
	"context"
	"fmt"

	"pricewatch/pkg/alert"
	"pricewatch/pkg/catalog"
	"pricewatch/pkg/scrape"
	"pricewatch/pkg/storage"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// DefaultThresholdPct is the drop magnitude used when no threshold was
// configured. Applied by callers, never inside Run, so an explicit zero
// threshold stays zero.
const DefaultThresholdPct = 20.0

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Fetcher produces the rendered HTML for one category listing page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Notifier delivers ranked drops. *alert.Notifier satisfies this.
type Notifier interface {
	Notify(drops []catalog.Change, thresholdPct float64) error
}

// Config holds everything Run needs for a single tracking run.
type Config struct {
	Categories []scrape.Category
	DB         *storage.DB
	Fetcher    Fetcher

	// ThresholdPct is the minimum drop magnitude that alerts. Zero is a
	// valid threshold and alerts on every drop; callers resolving a
	// user-facing default pass DefaultThresholdPct when nothing was
	// configured.
	ThresholdPct float64
	// Location is stamped onto every entry written this run. Metadata
	// only; it never participates in identity.
	Location string
	// BaseURL resolves relative product links from listing pages.
	BaseURL string
	// ExportPath, when set, receives the run's JSON product export.
	ExportPath string

	Notifier Notifier // optional
	Log      Logger   // optional; nil = no logging
}

// Result is the deterministic summary of one run. Counters live here, not
// in package state, so runs compose and tests stay hermetic.
type Result struct {
	Known     int // catalog size before the run
	Total     int // candidates ingested
	New       int
	Updated   int
	Unchanged int

	SkipStats      scrape.Stats
	CategoryErrors []error

	Changes []catalog.Change
	Drops   []catalog.Change
}

// Run executes one tracking run: fetch each category, extract candidates,
// resolve identities, upsert through the catalog store, then rank and
// deliver drops. A category that fails to fetch is skipped; a storage
// failure halts the run, since continuing would report success over an
// inconsistent catalog.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	if cfg.DB == nil {
		return nil, fmt.Errorf("tracker: no database configured")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("tracker: no fetcher configured")
	}

	result := &Result{}

	// Pre-run snapshot, taken before any upsert of this batch.
	snapshot, err := cfg.DB.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog snapshot: %w", err)
	}
	result.Known = len(snapshot)
	log.Infof("Found %d products in database", result.Known)

	var exported []catalog.Candidate

	for i, category := range cfg.Categories {
		log.Infof("[%d/%d] %s", i+1, len(cfg.Categories), category.Name)

		html, err := cfg.Fetcher.Fetch(ctx, category.URL)
		if err != nil {
			log.Warnf("Failed to fetch category %s: %v", category.Name, err)
			result.CategoryErrors = append(result.CategoryErrors, fmt.Errorf("category %s: %w", category.Name, err))
			continue
		}

		candidates, stats := scrape.Extract(html, category.Name, cfg.BaseURL)
		result.SkipStats.Add(stats)

		unique := scrape.Dedupe(candidates)
		log.Debugf("Category %s: %d containers, %d unique candidates", category.Name, stats.Containers, len(unique))

		for _, c := range unique {
			key := catalog.Resolve(c)
			change, err := cfg.DB.Upsert(ctx, key, c, cfg.Location)
			if err != nil {
				return result, fmt.Errorf("storing %s: %w", c.Name, err)
			}
			result.Total++
			switch change.Kind {
			case catalog.KindNew:
				result.New++
			case catalog.KindChanged:
				result.Updated++
			default:
				result.Unchanged++
			}
			result.Changes = append(result.Changes, change)
			exported = append(exported, c)
		}
	}

	if cfg.ExportPath != "" && len(exported) > 0 {
		if err := writeExport(cfg.ExportPath, exported); err != nil {
			log.Warnf("Export failed: %v", err)
		} else {
			log.Infof("Exported %d products to %s", len(exported), cfg.ExportPath)
		}
	}

	result.Drops = alert.Rank(result.Changes, cfg.ThresholdPct)

	// Persistence precedes delivery, so a delivery failure only costs the
	// message, never the data.
	if cfg.Notifier != nil && len(result.Drops) > 0 {
		if err := cfg.Notifier.Notify(result.Drops, cfg.ThresholdPct); err != nil {
			log.Warnf("Alert delivery failed: %v", err)
		}
	}

	return result, nil
}
