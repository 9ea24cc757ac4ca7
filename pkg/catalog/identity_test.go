package catalog

import (
	"testing"
	"time"
)

func candidate(name, category, url string) Candidate {
	return Candidate{
		Name:        name,
		Price:       100,
		MRP:         100,
		Category:    category,
		URL:         url,
		ExtractedAt: time.Now(),
	}
}

func TestResolveURLRules(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://shop.example.com/p/abc-123", "abc-123"},
		{"https://shop.example.com/p/abc-123?src=listing", "abc-123"},
		{"https://shop.example.com/product/xyz-789", "xyz-789"},
		{"https://shop.example.com/pn/herbal-shampoo/pvid/pv-55", "pv-55"},
		{"https://shop.example.com/cn/bath/soaps/cid/c1/scid/sc-42", "sc-42"},
		{"https://shop.example.com/item?id=q-9&ref=home", "q-9"},
	}
	for _, tc := range cases {
		got := Resolve(candidate("Anything", "Bath", tc.url))
		if got != tc.want {
			t.Fatalf("url %s: expected key %q, got %q", tc.url, tc.want, got)
		}
	}
}

func TestResolveURLIDIgnoresNameAndCategory(t *testing.T) {
	url := "https://shop.example.com/p/abc-123"
	a := Resolve(candidate("Herbal Shampoo 180 ml", "Bath", url))
	b := Resolve(candidate("HERBAL  shampoo", "Grocery", url))
	if a != b || a != "abc-123" {
		t.Fatalf("URL id must win over name/category noise, got %q and %q", a, b)
	}
}

func TestResolveUnknownURLHashesURL(t *testing.T) {
	a := Resolve(candidate("Herbal Shampoo", "Bath", "https://shop.example.com/deals/today"))
	b := Resolve(candidate("Totally Different", "Grocery", "https://shop.example.com/deals/today"))
	if len(a) != 16 {
		t.Fatalf("expected a 16-char key, got %q", a)
	}
	if a != b {
		t.Fatalf("same unmatched URL must give the same key, got %q and %q", a, b)
	}
	c := Resolve(candidate("Herbal Shampoo", "Bath", "https://shop.example.com/deals/tomorrow"))
	if a == c {
		t.Fatalf("distinct unmatched URLs must not share a key")
	}
}

func TestResolveContentHashStable(t *testing.T) {
	a := Resolve(candidate("Herbal Shampoo 180 ml", "Bath", ""))
	b := Resolve(candidate("herbal  SHAMPOO 180 ml", "Bath", ""))
	if a != b {
		t.Fatalf("case and whitespace noise must not change the key, got %q and %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected a 16-char key, got %q", a)
	}
}

func TestResolveSizeChangesKey(t *testing.T) {
	a := Resolve(candidate("Herbal Shampoo 180 ml", "Bath", ""))
	b := Resolve(candidate("Herbal Shampoo 340 ml", "Bath", ""))
	if a == b {
		t.Fatalf("different sizes must not share a key")
	}
}

func TestResolveFeatureChangesKey(t *testing.T) {
	a := Resolve(candidate("Shine Shampoo 180 ml", "Bath", ""))
	b := Resolve(candidate("Shine Shampoo for men 180 ml", "Bath", ""))
	if a == b {
		t.Fatalf("different feature tokens must not share a key")
	}
}

func TestResolveFeatureOrderIrrelevant(t *testing.T) {
	a := contentKey(candidate("anti-dandruff shampoo for men", "Bath", ""))
	b := contentKey(candidate("men anti-dandruff shampoo", "Bath", ""))
	if a != b {
		t.Fatalf("feature token order must not affect the key, got %q and %q", a, b)
	}
}

func TestResolveIdempotent(t *testing.T) {
	c := candidate("Herbal Shampoo 180 ml", "Bath", "")
	first := Resolve(c)
	for i := 0; i < 5; i++ {
		if got := Resolve(c); got != first {
			t.Fatalf("resolve must be pure, got %q then %q", first, got)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	got := NormalizeName("  Herbal   SHAMPOO\t180 ml ")
	if got != "herbal shampoo 180 ml" {
		t.Fatalf("expected %q, got %q", "herbal shampoo 180 ml", got)
	}
}

func TestURLProductIDEmpty(t *testing.T) {
	if got := URLProductID(""); got != "" {
		t.Fatalf("expected empty id for empty URL, got %q", got)
	}
	if got := URLProductID("https://shop.example.com/deals"); got != "" {
		t.Fatalf("expected empty id for unmatched URL, got %q", got)
	}
}
