package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"pricewatch/pkg/catalog"
)

type exportRecord struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	ExtractedAt string  `json:"extracted_at"`
}

// writeExport dumps the run's kept records as a JSON reporting artifact.
// Image URLs are truncated; CDN links run long and the export is for
// eyeballing, not re-ingestion.
func writeExport(path string, products []catalog.Candidate) error {
	records := make([]exportRecord, 0, len(products))
	for _, p := range products {
		image := p.Image
		if len(image) > 100 {
			image = image[:100] + "..."
		}
		records = append(records, exportRecord{
			Name:        p.Name,
			Price:       p.Price,
			Category:    p.Category,
			ImageURL:    image,
			ExtractedAt: p.ExtractedAt.UTC().Format(time.RFC3339),
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
