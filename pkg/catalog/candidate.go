package catalog

import "time"

// Change classifications.
const (
	KindNew       = "new"
	KindUnchanged = "unchanged"
	KindChanged   = "changed"
)

// Candidate is one scraped product record before identity resolution.
type Candidate struct {
	Name        string
	Price       float64
	MRP         float64
	Discount    float64
	Category    string
	URL         string
	Image       string
	Rating      float64
	ExtractedAt time.Time
}

// Change records the outcome of comparing an incoming observation against
// the stored state for its key. OldPrice is nil for first-time records.
type Change struct {
	Key      string
	Name     string
	URL      string
	Category string
	NewPrice float64
	OldPrice *float64
	Delta    float64
	Pct      float64
	Kind     string
}
