package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pricewatch/internal/utils"
	"pricewatch/pkg/alert"
	"pricewatch/pkg/browser"
	"pricewatch/pkg/catalog"
	"pricewatch/pkg/fetch"
	"pricewatch/pkg/scrape"
	"pricewatch/pkg/storage"
	"pricewatch/pkg/tracker"
)

const (
	colorRed    = "\033[91m"
	colorGreen  = "\033[92m"
	colorYellow = "\033[93m"
	colorCyan   = "\033[96m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

// trackCmd implements: pricewatch track
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Capture all categories and report price drops",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'pricewatch track --help'", args[0])
		}

		categoriesPath, _ := cmd.Flags().GetString("categories")
		dbPath, _ := cmd.Flags().GetString("dbpath")
		exportPath, _ := cmd.Flags().GetString("export")
		baseURL, _ := cmd.Flags().GetString("baseurl")
		topN, _ := cmd.Flags().GetInt("top")
		useBrowser, _ := cmd.Flags().GetBool("browser")
		headless, _ := cmd.Flags().GetBool("headless")
		maxScrolls, _ := cmd.Flags().GetInt("max-scrolls")
		stableRounds, _ := cmd.Flags().GetInt("stable-rounds")

		threshold, _ := cmd.Flags().GetFloat64("threshold")
		if !cmd.Flags().Changed("threshold") {
			threshold = viper.GetFloat64("tracker.threshold")
		}
		location, _ := cmd.Flags().GetString("location")
		if !cmd.Flags().Changed("location") {
			location = viper.GetString("tracker.location")
		}

		categories, err := scrape.LoadCategories(categoriesPath)
		if err != nil {
			utils.Log.Warnf("No categories to track: %v", err)
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return err
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		var fetcher tracker.Fetcher
		if useBrowser {
			b, err := browser.Launch(headless)
			if err != nil {
				return err
			}
			defer b.Close()
			b.Location = location
			b.MaxScrolls = maxScrolls
			b.StableRounds = stableRounds
			fetcher = b
		} else {
			fetcher = fetch.NewHTTPFetcher()
		}

		var notifier tracker.Notifier
		if webhook := viper.GetString("slack.webhook"); webhook != "" {
			notifier = alert.NewNotifier(webhook, topN)
		}

		fmt.Println(colorBold + "🛒 pricewatch" + colorReset)
		fmt.Printf("📍 Location: %s\n", location)
		fmt.Printf("📉 Price Drop Threshold: %.1f%%\n", threshold)
		fmt.Printf("📦 Scanning %d categories...\n\n", len(categories))

		start := time.Now()
		result, err := tracker.Run(context.Background(), tracker.Config{
			Categories:   categories,
			DB:           db,
			Fetcher:      fetcher,
			ThresholdPct: threshold,
			Location:     location,
			BaseURL:      baseURL,
			ExportPath:   exportPath,
			Notifier:     notifier,
			Log:          utils.Log,
		})
		if err != nil {
			return err
		}

		printSummary(result, dbPath, time.Since(start))
		printDrops(result.Drops, threshold, topN)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().String("categories", "categories.json", "Path to the category list (JSON array of {name, url})")
	trackCmd.Flags().String("dbpath", "data/prices.db", "Path to SQLite DB file")
	trackCmd.Flags().String("export", "", "Write a JSON export of this run's products to the given path")
	trackCmd.Flags().String("baseurl", "https://www.zepto.com", "Base URL used to resolve relative product links")
	trackCmd.Flags().Float64P("threshold", "t", tracker.DefaultThresholdPct, "Minimum drop percentage that alerts")
	trackCmd.Flags().String("location", "", "Delivery location stamped onto this run's entries")
	trackCmd.Flags().Int("top", 10, "Number of drops included in the webhook alert")
	trackCmd.Flags().Bool("browser", true, "Render pages in a headless browser (required for lazy-loaded listings)")
	trackCmd.Flags().Bool("headless", true, "Run the browser without a visible window")
	trackCmd.Flags().Int("max-scrolls", 100, "Hard cap on scroll iterations per category")
	trackCmd.Flags().Int("stable-rounds", 5, "Consecutive scrolls without new items before a category is considered fully loaded")
}

func printSummary(result *tracker.Result, dbPath string, elapsed time.Duration) {
	fmt.Println()
	fmt.Println(colorBold + "✅ Run complete!" + colorReset)
	fmt.Printf("📊 Products ingested: %d (in %s)\n", result.Total, elapsed.Round(time.Second))
	fmt.Printf("🆕 New: %d   🔄 Updated: %d   ➖ Unchanged: %d\n", result.New, result.Updated, result.Unchanged)
	if s := result.SkipStats; s.NoImage+s.InvalidName+s.NoPrice > 0 {
		fmt.Printf("⚠️  Skipped: %d no-image, %d invalid-name, %d no-price\n", s.NoImage, s.InvalidName, s.NoPrice)
	}
	for _, err := range result.CategoryErrors {
		fmt.Printf(colorYellow+"⚠️  %v\n"+colorReset, err)
	}
	fmt.Printf("🗄️  Database: %s\n", dbPath)
}

func printDrops(drops []catalog.Change, threshold float64, topN int) {
	fmt.Println()
	fmt.Printf(colorBold+colorRed+"📉 MAJOR PRICE DROPS (≥ %.1f%%)\n"+colorReset, threshold)
	if len(drops) == 0 {
		fmt.Println(colorYellow + "No major price drops detected this run." + colorReset)
		return
	}
	shown := drops
	if topN > 0 && len(shown) > topN {
		shown = shown[:topN]
	}
	for _, d := range shown {
		old := 0.0
		if d.OldPrice != nil {
			old = *d.OldPrice
		}
		fmt.Printf(colorRed+colorBold+"↓ %s | ₹%.2f → ₹%.2f (%+.1f%%)\n"+colorReset, d.Name, old, d.NewPrice, d.Pct)
		fmt.Printf(colorCyan+"    📁 %s", d.Category)
		if d.URL != "" {
			fmt.Printf("  🔗 %s", d.URL)
		}
		fmt.Println(colorReset)
	}
	if len(drops) > len(shown) {
		fmt.Printf("...and %d more.\n", len(drops)-len(shown))
	}
}
