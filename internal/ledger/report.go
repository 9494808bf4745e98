package ledger

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"go-stock-ledger/internal/model"
)

// CardLine is one movement on a stock card with the balance right after it.
type CardLine struct {
	model.LogEntry
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// StockCard is the running-balance history of one product over a window.
type StockCard struct {
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Unit           string          `json:"unit"`
	Window         Window          `json:"window"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Lines          []CardLine      `json:"lines"`
}

// BuildStockCard runs a balance from initialStock over the product's entries in
// chronological order and keeps the in-window lines. Migration entries are left
// out of the card entirely.
func BuildStockCard(p *model.Product, entries []model.LogEntry, w Window) StockCard {
	card := StockCard{
		ProductID:   p.ID,
		ProductName: p.Name,
		Unit:        p.Unit,
		Window:      w,
		Lines:       []CardLine{},
	}

	running := p.InitialStock
	card.OpeningBalance = p.InitialStock
	for _, e := range SortChronological(entries) {
		if e.IsMigration() {
			continue
		}
		running = running.Add(e.QuantityChange)
		switch {
		case e.Timestamp.Before(w.Start):
			card.OpeningBalance = running
		case w.Contains(e.Timestamp):
			card.Lines = append(card.Lines, CardLine{LogEntry: e, BalanceAfter: running})
		}
	}

	card.ClosingBalance = card.OpeningBalance
	if n := len(card.Lines); n > 0 {
		card.ClosingBalance = card.Lines[n-1].BalanceAfter
	}
	return card
}

// RecapRow is one product line of the period recap.
type RecapRow struct {
	ProductID    string          `json:"code"`
	ProductName  string          `json:"name"`
	Unit         string          `json:"uom"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	InRange      decimal.Decimal `json:"in_range"`
	OutRange     decimal.Decimal `json:"out_range"`
	StockEnd     decimal.Decimal `json:"stock_end"`
}

// BuildRecap summarizes every product over w, ordered by product id with numeric
// runs compared by value. Migration entries count here: they net to zero.
func BuildRecap(products []model.Product, entries []model.LogEntry, w Window) []RecapRow {
	byProduct := NewIndex(products).GroupByProduct(entries)

	rows := make([]RecapRow, 0, len(products))
	for i := range products {
		p := &products[i]
		sum := RangeBalance(p.InitialStock, byProduct[p.ID], w)
		rows = append(rows, RecapRow{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Unit:         p.Unit,
			OpeningStock: sum.Opening,
			InRange:      sum.In,
			OutRange:     sum.Out,
			StockEnd:     sum.Closing,
		})
	}

	c := collate.New(language.Und, collate.Numeric)
	slices.SortStableFunc(rows, func(a, b RecapRow) int {
		return c.CompareString(a.ProductID, b.ProductID)
	})
	return rows
}

// MovementFilter narrows the all-movements view. Zero values match everything.
type MovementFilter struct {
	Search string
	Type   model.LogType
	Window *Window
}

// FilterMovements lists non-migration entries matching f, newest first. Search
// matches product name, recipient or user, case-insensitively.
func FilterMovements(entries []model.LogEntry, f MovementFilter) []model.LogEntry {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := []model.LogEntry{}
	for i := range entries {
		e := &entries[i]
		if e.IsMigration() {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Window != nil && !f.Window.Contains(e.Timestamp) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.ProductName), needle) &&
			!strings.Contains(strings.ToLower(e.Recipient), needle) &&
			!strings.Contains(strings.ToLower(e.User), needle) {
			continue
		}
		out = append(out, *e)
	}
	slices.SortStableFunc(out, func(a, b model.LogEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}
