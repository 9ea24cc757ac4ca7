package catalog

// Diff compares an incoming observation against the previously stored price
// for its key. prevPrice is nil when the key has never been seen, which
// classifies the record as new with zero deltas. The percentage delta is
// computed only when the previous price is positive; a stored price of zero
// yields Pct 0, so the record stays unchanged even though Delta is
// reported. No rounding happens here.
func Diff(key string, prevPrice *float64, c Candidate) Change {
	change := Change{
		Key:      key,
		Name:     c.Name,
		URL:      c.URL,
		Category: c.Category,
		NewPrice: c.Price,
		OldPrice: prevPrice,
	}

	if prevPrice == nil {
		change.Kind = KindNew
		return change
	}

	old := *prevPrice
	change.Delta = c.Price - old
	if old > 0 {
		change.Pct = change.Delta / old * 100
	}
	if change.Pct != 0 {
		change.Kind = KindChanged
	} else {
		change.Kind = KindUnchanged
	}
	return change
}
