package diag

import "sort"

// Bag accumulates diagnostics up to a configured cap.
type Bag struct {
	items []Diagnostic
	max   uint16
}

// NewBag constructs a bag with the given capacity.
func NewBag(max int) *Bag {
	return &Bag{
		items: make([]Diagnostic, 0, max),
		max:   uint16(max),
	}
}

// Add appends a diagnostic, respecting the cap.
// Returns false if the diagnostic was dropped because the cap was reached.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Cap returns the configured maximum.
func (b *Bag) Cap() uint16 { return b.max }

// HasErrors reports whether any diagnostic is at SevError or above.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic is at SevWarning or above.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

// Len returns the number of accumulated diagnostics.
func (b *Bag) Len() int { return len(b.items) }

// Items returns a read-only view of the accumulated diagnostics.
// Do not mutate the returned slice; it aliases the bag's storage.
func (b *Bag) Items() []Diagnostic { return b.items }

// Merge appends another bag's diagnostics, growing the cap if needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	newTotal := len(b.items) + len(other.items)
	if uint16(newTotal) > b.max {
		b.max = uint16(newTotal)
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics by module, function, offset, severity (desc),
// then code, for stable and deterministic output.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.At.Module != dj.At.Module {
			return di.At.Module < dj.At.Module
		}
		if di.At.Function != dj.At.Function {
			return di.At.Function < dj.At.Function
		}
		if di.At.Offset != dj.At.Offset {
			return di.At.Offset < dj.At.Offset
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}
