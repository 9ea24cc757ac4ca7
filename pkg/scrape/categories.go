package scrape

import (
	"encoding/json"
	"fmt"
	"os"
)

// Category is one fetch target: a display name and a listing-page URL.
type Category struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LoadCategories reads an ordered category list from a JSON file. A missing
// or malformed file is recoverable by design: callers log the error and run
// with zero categories rather than crash.
func LoadCategories(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading categories file: %w", err)
	}
	var categories []Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("parsing categories file %s: %w", path, err)
	}
	return categories, nil
}
