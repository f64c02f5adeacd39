package scan

// SourceError keeps a failed source's error apart from discovered items.
type SourceError struct {
	ScannerType string `json:"scanner_type"`
	Error       string `json:"error"`
}

// Aggregate merges per-source discoveries for reporting. Items deduplicate by
// asset key across sources; totals run by category and scanner type.
type Aggregate struct {
	seen      map[string]struct{}
	Buckets   map[Category][]Asset `json:"buckets"`
	Totals    map[Category]int     `json:"totals"`
	ByScanner map[string]int       `json:"by_scanner"`
	Stats     FilterStats          `json:"filter_stats"`
	Errors    []SourceError        `json:"errors,omitempty"`
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{
		seen:      make(map[string]struct{}),
		Buckets:   make(map[Category][]Asset),
		Totals:    make(map[Category]int),
		ByScanner: make(map[string]int),
	}
}

// Add merges one source's discovery, skipping assets already seen.
func (a *Aggregate) Add(scannerType string, d Discovery) {
	for _, asset := range d.Assets {
		key := asset.Key()
		if _, dup := a.seen[key]; dup {
			continue
		}
		a.seen[key] = struct{}{}
		a.Buckets[asset.Category] = append(a.Buckets[asset.Category], asset)
		a.Totals[asset.Category]++
		a.ByScanner[scannerType]++
	}
	a.Stats.Merge(d.Stats)
}

// AddError records a failed source.
func (a *Aggregate) AddError(scannerType string, err error) {
	a.Errors = append(a.Errors, SourceError{ScannerType: scannerType, Error: err.Error()})
}

// Assets flattens every bucket, database first, then cloud, then filesystem.
func (a *Aggregate) Assets() []Asset {
	var out []Asset
	for _, cat := range []Category{CategoryDatabase, CategoryCloud, CategoryFilesystem} {
		out = append(out, a.Buckets[cat]...)
	}
	return out
}

// Total counts deduplicated items across categories.
func (a *Aggregate) Total() int {
	return len(a.seen)
}
