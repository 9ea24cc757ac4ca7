package storage

import "time"

// Product is the latest known state for one identity key.
type Product struct {
	Hash        string
	ProductID   string // source-derived id, best effort, informational only
	Name        string
	Price       float64
	MRP         float64
	Discount    float64
	Category    string
	URL         string
	Image       string
	Rating      float64
	ExtractedAt time.Time
	Location    string
}

// Observation is one immutable price-history row for an identity key.
type Observation struct {
	ID          int64
	Hash        string
	Name        string
	Price       float64
	Category    string
	ExtractedAt time.Time
	Location    string
}

// CategoryStats aggregates per-category counts for the stats command.
type CategoryStats struct {
	Category     string
	ProductCount int
	HistoryCount int
}
