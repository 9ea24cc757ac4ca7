package catalog

import "testing"

func TestDiffNewRecord(t *testing.T) {
	c := candidate("Herbal Shampoo", "Bath", "")
	got := Diff("k1", nil, c)
	if got.Kind != KindNew {
		t.Fatalf("expected %q, got %q", KindNew, got.Kind)
	}
	if got.OldPrice != nil {
		t.Fatalf("expected nil previous price, got %v", *got.OldPrice)
	}
	if got.Delta != 0 || got.Pct != 0 {
		t.Fatalf("expected zero deltas for a new record, got %v / %v", got.Delta, got.Pct)
	}
}

func TestDiffDrop(t *testing.T) {
	c := candidate("Herbal Shampoo", "Bath", "")
	c.Price = 80
	old := 100.0
	got := Diff("k1", &old, c)
	if got.Kind != KindChanged {
		t.Fatalf("expected %q, got %q", KindChanged, got.Kind)
	}
	if got.Delta != -20 {
		t.Fatalf("expected delta -20, got %v", got.Delta)
	}
	if got.Pct != -20.0 {
		t.Fatalf("expected pct -20.0, got %v", got.Pct)
	}
}

func TestDiffUnchanged(t *testing.T) {
	c := candidate("Herbal Shampoo", "Bath", "")
	c.Price = 100
	old := 100.0
	got := Diff("k1", &old, c)
	if got.Kind != KindUnchanged {
		t.Fatalf("expected %q, got %q", KindUnchanged, got.Kind)
	}
	if got.OldPrice == nil || *got.OldPrice != 100 {
		t.Fatalf("previous price must be carried through, got %v", got.OldPrice)
	}
}

func TestDiffZeroPreviousPrice(t *testing.T) {
	c := candidate("Herbal Shampoo", "Bath", "")
	c.Price = 50
	old := 0.0
	got := Diff("k1", &old, c)
	if got.Pct != 0 {
		t.Fatalf("pct must stay 0 when the stored price is 0, got %v", got.Pct)
	}
	if got.Delta != 50 {
		t.Fatalf("expected delta 50, got %v", got.Delta)
	}
	if got.Kind != KindUnchanged {
		t.Fatalf("zero pct classifies unchanged, got %q", got.Kind)
	}
}

func TestDiffRise(t *testing.T) {
	c := candidate("Herbal Shampoo", "Bath", "")
	c.Price = 150
	old := 100.0
	got := Diff("k1", &old, c)
	if got.Kind != KindChanged {
		t.Fatalf("expected %q, got %q", KindChanged, got.Kind)
	}
	if got.Pct != 50.0 {
		t.Fatalf("expected pct 50.0, got %v", got.Pct)
	}
}
