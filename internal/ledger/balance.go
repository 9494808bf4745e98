// Package ledger derives every displayed quantity from units and the movement log.
// Nothing in here touches storage; callers hand in snapshots.
package ledger

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/model"
)

// Window is an inclusive time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DayWindow spans from 00:00:00.000 of from to 23:59:59.999 of to, in loc.
func DayWindow(from, to time.Time, loc *time.Location) Window {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	return Window{Start: start, End: end}
}

// Direction is the report column an entry counts toward.
type Direction int

const (
	Neutral Direction = iota
	Inbound
	Outbound
)

// Classify puts IN, CREATE and positive ADJUST on the inbound side and
// OUT and negative ADJUST on the outbound side.
func Classify(e *model.LogEntry) Direction {
	switch e.Type {
	case model.LogIn, model.LogCreate:
		return Inbound
	case model.LogOut:
		return Outbound
	case model.LogAdjust:
		switch e.QuantityChange.Sign() {
		case 1:
			return Inbound
		case -1:
			return Outbound
		}
	}
	return Neutral
}

// Index resolves log entries to products. Entries carrying a ProductID use it;
// older entries fall back to the normalized product name.
type Index struct {
	byName map[string]string
}

func NewIndex(products []model.Product) *Index {
	ix := &Index{byName: make(map[string]string, len(products))}
	for _, p := range products {
		key := normalizeName(p.Name)
		if _, taken := ix.byName[key]; !taken {
			ix.byName[key] = p.ID
		}
	}
	return ix
}

func (ix *Index) Resolve(e *model.LogEntry) (string, bool) {
	if e.ProductID != "" {
		return e.ProductID, true
	}
	id, ok := ix.byName[normalizeName(e.ProductName)]
	return id, ok
}

// EntriesFor returns the entries of one product, keeping their input order.
func (ix *Index) EntriesFor(productID string, entries []model.LogEntry) []model.LogEntry {
	var out []model.LogEntry
	for i := range entries {
		if id, ok := ix.Resolve(&entries[i]); ok && id == productID {
			out = append(out, entries[i])
		}
	}
	return out
}

// GroupByProduct partitions entries per product id. Unresolvable entries are dropped.
func (ix *Index) GroupByProduct(entries []model.LogEntry) map[string][]model.LogEntry {
	out := make(map[string][]model.LogEntry)
	for i := range entries {
		if id, ok := ix.Resolve(&entries[i]); ok {
			out[id] = append(out[id], entries[i])
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SortChronological returns a copy ordered by timestamp ascending. Equal timestamps
// keep their input order, which callers supply in arrival order.
func SortChronological(entries []model.LogEntry) []model.LogEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b model.LogEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// Sum adds up the quantity changes of entries.
func Sum(entries []model.LogEntry) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(entries[i].QuantityChange)
	}
	return total
}

// CurrentBalance is initial + Σ quantityChange over every entry of the product.
func CurrentBalance(initial decimal.Decimal, entries []model.LogEntry) decimal.Decimal {
	return initial.Add(Sum(entries))
}

// OpeningBalance is initial + Σ quantityChange of entries strictly before start.
func OpeningBalance(initial decimal.Decimal, entries []model.LogEntry, start time.Time) decimal.Decimal {
	total := initial
	for i := range entries {
		if entries[i].Timestamp.Before(start) {
			total = total.Add(entries[i].QuantityChange)
		}
	}
	return total
}

// SumSince adds the quantity changes of entries at or after since.
func SumSince(entries []model.LogEntry, since time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		if !entries[i].Timestamp.Before(since) {
			total = total.Add(entries[i].QuantityChange)
		}
	}
	return total
}

// RangeSummary is the movement of one product over a window.
type RangeSummary struct {
	Opening decimal.Decimal `json:"opening"`
	In      decimal.Decimal `json:"in"`
	Out     decimal.Decimal `json:"out"`
	Closing decimal.Decimal `json:"closing"`
}

// RangeBalance sums absolute in-window quantities per direction; Closing = Opening + In − Out.
func RangeBalance(initial decimal.Decimal, entries []model.LogEntry, w Window) RangeSummary {
	sum := RangeSummary{Opening: OpeningBalance(initial, entries, w.Start), In: decimal.Zero, Out: decimal.Zero}
	for i := range entries {
		e := &entries[i]
		if !w.Contains(e.Timestamp) {
			continue
		}
		switch Classify(e) {
		case Inbound:
			sum.In = sum.In.Add(e.QuantityChange.Abs())
		case Outbound:
			sum.Out = sum.Out.Add(e.QuantityChange.Abs())
		}
	}
	sum.Closing = sum.Opening.Add(sum.In).Sub(sum.Out)
	return sum
}
