package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pricewatch/pkg/catalog"
	"pricewatch/pkg/scrape"
	"pricewatch/pkg/storage"
)

// fakeFetcher serves canned HTML per URL and can fail specific URLs.
type fakeFetcher struct {
	pages map[string]string
	fail  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err, ok := f.fail[url]; ok {
		return "", err
	}
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no fixture for %s", url)
	}
	return html, nil
}

type captureNotifier struct {
	drops     []catalog.Change
	threshold float64
	calls     int
	err       error
}

func (n *captureNotifier) Notify(drops []catalog.Change, thresholdPct float64) error {
	n.calls++
	n.drops = drops
	n.threshold = thresholdPct
	return n.err
}

func listingHTML(prices map[string]float64) string {
	html := "<html><body>"
	for name, price := range prices {
		html += fmt.Sprintf(`<div class="product-card"><img src="x.jpg" alt="%s"><span>₹%.2f</span></div>`, name, price)
	}
	return html + "</body></html>"
}

func runConfig(t *testing.T, db *storage.DB, f Fetcher) Config {
	t.Helper()
	return Config{
		Categories:   []scrape.Category{{Name: "Grocery", URL: "https://shop.example.com/grocery"}},
		DB:           db,
		Fetcher:      f,
		ThresholdPct: 20.0,
		Location:     "560001",
		BaseURL:      "https://shop.example.com",
	}
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunFirstRunAllNew(t *testing.T) {
	db := openDB(t)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/grocery": listingHTML(map[string]float64{
			"Green Tea 250 g":       200,
			"Herbal Shampoo 500 ml": 199,
		}),
	}}

	res, err := Run(context.Background(), runConfig(t, db, fetcher))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Known != 0 {
		t.Fatalf("expected empty pre-run catalog, got %d", res.Known)
	}
	if res.Total != 2 || res.New != 2 || res.Updated != 0 || res.Unchanged != 0 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if len(res.Drops) != 0 {
		t.Fatalf("first run cannot produce drops, got %d", len(res.Drops))
	}
}

func TestRunDetectsDropAcrossRuns(t *testing.T) {
	db := openDB(t)
	url := "https://shop.example.com/grocery"

	first := &fakeFetcher{pages: map[string]string{url: listingHTML(map[string]float64{"Green Tea 250 g": 200})}}
	if _, err := Run(context.Background(), runConfig(t, db, first)); err != nil {
		t.Fatalf("run 1: %v", err)
	}

	second := &fakeFetcher{pages: map[string]string{url: listingHTML(map[string]float64{"Green Tea 250 g": 150})}}
	notifier := &captureNotifier{}
	cfg := runConfig(t, db, second)
	cfg.Notifier = notifier

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if res.Known != 1 {
		t.Fatalf("expected 1 known product before run 2, got %d", res.Known)
	}
	if res.Updated != 1 {
		t.Fatalf("expected 1 updated, got %+v", res)
	}
	if len(res.Drops) != 1 {
		t.Fatalf("expected 1 alertable drop, got %d", len(res.Drops))
	}
	if res.Drops[0].Pct != -25.0 {
		t.Fatalf("expected pct -25.0, got %v", res.Drops[0].Pct)
	}
	if notifier.calls != 1 || len(notifier.drops) != 1 {
		t.Fatalf("notifier should have been called once with the drop, got %d calls", notifier.calls)
	}

	// Run 3: 150 -> 140 is only -6.7%, below threshold despite the
	// continued decline.
	third := &fakeFetcher{pages: map[string]string{url: listingHTML(map[string]float64{"Green Tea 250 g": 140})}}
	res, err = Run(context.Background(), runConfig(t, db, third))
	if err != nil {
		t.Fatalf("run 3: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("expected the price change to register, got %+v", res)
	}
	if len(res.Drops) != 0 {
		t.Fatalf("a -6.7%% drop must not alert at a 20%% threshold, got %d", len(res.Drops))
	}
}

func TestRunZeroThresholdAlertsEveryDrop(t *testing.T) {
	db := openDB(t)
	url := "https://shop.example.com/grocery"

	first := &fakeFetcher{pages: map[string]string{url: listingHTML(map[string]float64{"Green Tea 250 g": 200})}}
	if _, err := Run(context.Background(), runConfig(t, db, first)); err != nil {
		t.Fatalf("run 1: %v", err)
	}

	// 200 -> 190 is only -5%; an explicit zero threshold must alert on it
	// rather than being silently replaced by the default.
	second := &fakeFetcher{pages: map[string]string{url: listingHTML(map[string]float64{"Green Tea 250 g": 190})}}
	notifier := &captureNotifier{}
	cfg := runConfig(t, db, second)
	cfg.ThresholdPct = 0
	cfg.Notifier = notifier

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if len(res.Drops) != 1 {
		t.Fatalf("expected the -5%% drop to alert at threshold 0, got %d", len(res.Drops))
	}
	if notifier.calls != 1 || notifier.threshold != 0 {
		t.Fatalf("notifier must receive the configured threshold, got %d calls at %v", notifier.calls, notifier.threshold)
	}
}

func TestRunSkipsFailedCategory(t *testing.T) {
	db := openDB(t)
	okURL := "https://shop.example.com/grocery"
	badURL := "https://shop.example.com/bath"

	fetcher := &fakeFetcher{
		pages: map[string]string{okURL: listingHTML(map[string]float64{"Green Tea 250 g": 200})},
		fail:  map[string]error{badURL: errors.New("timeout")},
	}
	cfg := runConfig(t, db, fetcher)
	cfg.Categories = []scrape.Category{
		{Name: "Bath", URL: badURL},
		{Name: "Grocery", URL: okURL},
	}

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("a category failure must not fail the run: %v", err)
	}
	if len(res.CategoryErrors) != 1 {
		t.Fatalf("expected 1 category error, got %d", len(res.CategoryErrors))
	}
	if res.Total != 1 {
		t.Fatalf("the healthy category should still ingest, got %d", res.Total)
	}
}

func TestRunNotifierFailureIsNotFatal(t *testing.T) {
	db := openDB(t)
	url := "https://shop.example.com/grocery"

	first := &fakeFetcher{pages: map[string]string{url: listingHTML(map[string]float64{"Green Tea 250 g": 200})}}
	if _, err := Run(context.Background(), runConfig(t, db, first)); err != nil {
		t.Fatalf("run 1: %v", err)
	}

	second := &fakeFetcher{pages: map[string]string{url: listingHTML(map[string]float64{"Green Tea 250 g": 100})}}
	cfg := runConfig(t, db, second)
	cfg.Notifier = &captureNotifier{err: errors.New("webhook down")}

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("delivery failure must not fail the run: %v", err)
	}
	if len(res.Drops) != 1 {
		t.Fatalf("the drop should still be reported, got %d", len(res.Drops))
	}
}

func TestRunWritesExport(t *testing.T) {
	db := openDB(t)
	exportPath := filepath.Join(t.TempDir(), "exports", "products.json")

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/grocery": listingHTML(map[string]float64{"Green Tea 250 g": 200}),
	}}
	cfg := runConfig(t, db, fetcher)
	cfg.ExportPath = exportPath

	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 exported record, got %d", len(records))
	}
	if records[0]["name"] != "Green Tea 250 g" {
		t.Fatalf("unexpected export record: %v", records[0])
	}
}

func TestRunUnchangedReingest(t *testing.T) {
	db := openDB(t)
	url := "https://shop.example.com/grocery"
	fetcher := &fakeFetcher{pages: map[string]string{url: listingHTML(map[string]float64{"Green Tea 250 g": 200})}}

	if _, err := Run(context.Background(), runConfig(t, db, fetcher)); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	res, err := Run(context.Background(), runConfig(t, db, fetcher))
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if res.Unchanged != 1 || res.New != 0 || res.Updated != 0 {
		t.Fatalf("identical re-ingest should count as unchanged: %+v", res)
	}
}
