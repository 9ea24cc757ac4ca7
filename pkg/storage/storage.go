package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pricewatch/pkg/catalog"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS products (
  product_hash TEXT PRIMARY KEY,
  product_id   TEXT,
  name         TEXT NOT NULL,
  price        REAL,
  mrp          REAL,
  discount     REAL,
  category     TEXT,
  url          TEXT,
  image        TEXT,
  rating       REAL,
  extracted_at TEXT,
  location     TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE TABLE IF NOT EXISTS price_history (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  product_hash TEXT NOT NULL,
  name         TEXT,
  price        REAL,
  category     TEXT,
  extracted_at TEXT,
  location     TEXT
);
CREATE INDEX IF NOT EXISTS idx_history_hash ON price_history(product_hash, id);
	`); err != nil {
		return nil, err
	}
	// Databases created before the source-id column existed get it added
	// here. The ALTER fails with "duplicate column" on current schemas,
	// which is the expected no-op.
	if _, err := db.Exec(`ALTER TABLE products ADD COLUMN product_id TEXT`); err != nil {
		if !strings.Contains(err.Error(), "duplicate column") {
			return nil, err
		}
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Upsert ingests one resolved candidate: it reads the prior entry for the
// key, classifies the price movement, overwrites the latest-state row and
// appends one history row, all in a single transaction so concurrent upserts
// of the same key serialize and history never loses an interleaved write.
func (d *DB) Upsert(ctx context.Context, key string, c catalog.Candidate, location string) (catalog.Change, error) {
	var change catalog.Change

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return change, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var prevPrice *float64
	var stored sql.NullFloat64
	err = tx.QueryRowContext(ctx, "SELECT price FROM products WHERE product_hash = ?", key).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		err = nil
	case err != nil:
		return change, err
	default:
		p := stored.Float64
		prevPrice = &p
	}

	change = catalog.Diff(key, prevPrice, c)

	extractedAt := c.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now()
	}
	ts := extractedAt.UTC().Format(time.RFC3339)
	productID := catalog.URLProductID(c.URL)

	_, err = tx.ExecContext(ctx, `INSERT INTO products
  (product_hash, product_id, name, price, mrp, discount, category, url, image, rating, extracted_at, location)
  VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
  ON CONFLICT(product_hash) DO UPDATE SET
    product_id=excluded.product_id,
    name=excluded.name,
    price=excluded.price,
    mrp=excluded.mrp,
    discount=excluded.discount,
    category=excluded.category,
    url=excluded.url,
    image=excluded.image,
    rating=excluded.rating,
    extracted_at=excluded.extracted_at,
    location=excluded.location`,
		key, nullIfEmpty(productID), c.Name, c.Price, c.MRP, c.Discount,
		c.Category, nullIfEmpty(c.URL), nullIfEmpty(c.Image), c.Rating, ts, location)
	if err != nil {
		return change, err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO price_history
  (product_hash, name, price, category, extracted_at, location)
  VALUES (?,?,?,?,?,?)`,
		key, c.Name, c.Price, c.Category, ts, location)
	if err != nil {
		return change, err
	}

	if err = tx.Commit(); err != nil {
		return change, err
	}
	return change, nil
}

// Get returns the latest entry for a key, or nil when the key is unknown.
func (d *DB) Get(ctx context.Context, key string) (*Product, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT product_hash, product_id, name, price, mrp, discount, category, url, image, rating, extracted_at, location
  FROM products WHERE product_hash = ?`, key)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Snapshot returns the key -> price mapping of the whole catalog. Callers
// that want pre-run state must take it before ingesting the new batch.
func (d *DB) Snapshot(ctx context.Context) (map[string]float64, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT product_hash, price FROM products")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := make(map[string]float64)
	for rows.Next() {
		var hash string
		var price sql.NullFloat64
		if err := rows.Scan(&hash, &price); err != nil {
			return nil, err
		}
		snapshot[hash] = price.Float64
	}
	return snapshot, rows.Err()
}

// History returns the most recent observations for a key, newest first.
func (d *DB) History(ctx context.Context, key string, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, product_hash, name, price, category, extracted_at, location
  FROM price_history WHERE product_hash = ? ORDER BY id DESC LIMIT ?`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var ts, loc sql.NullString
		if err := rows.Scan(&o.ID, &o.Hash, &o.Name, &o.Price, &o.Category, &ts, &loc); err != nil {
			return nil, err
		}
		o.ExtractedAt = parseTimestamp(ts.String)
		o.Location = loc.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// SearchProducts finds entries whose hash matches exactly or whose name
// contains the query, case-insensitively.
func (d *DB) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT product_hash, product_id, name, price, mrp, discount, category, url, image, rating, extracted_at, location
  FROM products WHERE product_hash = ? OR name LIKE ? ORDER BY name`, query, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Stats returns per-category product and observation counts.
func (d *DB) Stats(ctx context.Context) ([]CategoryStats, error) {
	rows, err := d.sql.QueryContext(ctx, `
  SELECT p.category,
         COUNT(DISTINCT p.product_hash),
         (SELECT COUNT(*) FROM price_history h WHERE h.category = p.category)
  FROM products p
  GROUP BY p.category
  ORDER BY p.category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CategoryStats
	for rows.Next() {
		var s CategoryStats
		var cat sql.NullString
		if err := rows.Scan(&cat, &s.ProductCount, &s.HistoryCount); err != nil {
			return nil, err
		}
		s.Category = cat.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var productID, url, image, ts, loc sql.NullString
	var price, mrp, discount, rating sql.NullFloat64
	if err := row.Scan(&p.Hash, &productID, &p.Name, &price, &mrp, &discount, &p.Category, &url, &image, &rating, &ts, &loc); err != nil {
		return nil, err
	}
	p.ProductID = productID.String
	p.Price = price.Float64
	p.MRP = mrp.Float64
	p.Discount = discount.Float64
	p.URL = url.String
	p.Image = image.String
	p.Rating = rating.Float64
	p.ExtractedAt = parseTimestamp(ts.String)
	p.Location = loc.String
	return &p, nil
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// HistoryCount reports how many observations exist for a key.
func (d *DB) HistoryCount(ctx context.Context, key string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM price_history WHERE product_hash = ?", key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting history for %s: %w", key, err)
	}
	return n, nil
}
