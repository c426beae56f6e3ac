package visibility

import (
	"sort"
	"sync"
)

// Result is the finalized output of an Aggregator.
type Result struct {
	Rows    []Row             // chronological, stable within an hour
	Records map[string]Record // visible objects only
	Order   []string          // visible objects in merge order
}

// Aggregator collects per-object scans into per-object records and one
// chronological index. It is safe for concurrent use; merges are applied in
// call order.
type Aggregator struct {
	mu        sync.Mutex
	rows      []Row
	records   map[string]*Record
	order     []string
	finalized bool
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{records: make(map[string]*Record)}
}

// Merge adds one object's scan. Scans carrying an error, or with no
// qualifying observation, add nothing.
func (a *Aggregator) Merge(scan ObjectScan) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrFinalized
	}
	if scan.Err != nil || scan.Record == nil {
		return nil
	}

	if _, seen := a.records[scan.Object]; !seen {
		a.order = append(a.order, scan.Object)
	}
	rec := *scan.Record
	a.records[scan.Object] = &rec
	a.rows = append(a.rows, scan.Rows...)
	return nil
}

// Finalize sorts the index by key, keeping merge order within a key, and
// freezes the aggregator.
func (a *Aggregator) Finalize() (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return Result{}, ErrFinalized
	}
	a.finalized = true

	sort.SliceStable(a.rows, func(i, j int) bool {
		return a.rows[i].SortKey < a.rows[j].SortKey
	})

	records := make(map[string]Record, len(a.records))
	for k, r := range a.records {
		records[k] = *r
	}

	return Result{
		Rows:    a.rows,
		Records: records,
		Order:   append([]string(nil), a.order...),
	}, nil
}
