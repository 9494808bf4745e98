package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/ledger"
	"go-stock-ledger/internal/model"
)

type ReportService interface {
	StockCard(ctx context.Context, productID string, q Period) (*ledger.StockCard, error)
	Recap(ctx context.Context, q Period) ([]ledger.RecapRow, error)
	Movements(ctx context.Context, q MovementQuery) ([]model.LogEntry, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
}

// Period is a reporting range of whole days. Empty From means the first day of
// the current month; empty To means today.
type Period struct {
	From string `query:"from"`
	To   string `query:"to"`
}

type MovementQuery struct {
	Period
	Search string        `query:"search"`
	Type   model.LogType `query:"type"`
	// All ignores the period and lists every movement.
	All bool `query:"all"`
}

type TrendPoint struct {
	Date string          `json:"date"`
	In   decimal.Decimal `json:"in"`
	Out  decimal.Decimal `json:"out"`
}

type CategoryStock struct {
	Category string          `json:"category"`
	Stock    decimal.Decimal `json:"stock"`
	Products int             `json:"products"`
}

type Dashboard struct {
	TotalProducts     int             `json:"total_products"`
	LowStockCount     int             `json:"low_stock_count"`
	LowStock          []model.Product `json:"low_stock"`
	TodayIn           decimal.Decimal `json:"today_in"`
	TodayOut          decimal.Decimal `json:"today_out"`
	TodayTransactions int             `json:"today_transactions"`
	PendingRequests   int             `json:"pending_requests"`
	Trend             []TrendPoint    `json:"trend"`
	StockByCategory   []CategoryStock `json:"stock_by_category"`
}

type reportService struct {
	base
	logLimit int
}

// NewReportService builds report projections. logLimit bounds the movement
// listing only; balances always read the full log.
func NewReportService(d Deps, logLimit int) ReportService {
	return &reportService{base: newBase(d, "report"), logLimit: logLimit}
}

func (s *reportService) window(q Period) (ledger.Window, error) {
	now := s.now().In(s.loc)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	to := now
	var err error
	if q.From != "" {
		if from, err = s.parseDate("from", q.From); err != nil {
			return ledger.Window{}, err
		}
	}
	if q.To != "" {
		if to, err = s.parseDate("to", q.To); err != nil {
			return ledger.Window{}, err
		}
	}
	if to.Before(from) {
		return ledger.Window{}, apperror.Validation("the period ends before it starts")
	}
	return ledger.DayWindow(from, to, s.loc), nil
}

func (s *reportService) StockCard(ctx context.Context, productID string, q Period) (*ledger.StockCard, error) {
	w, err := s.window(q)
	if err != nil {
		return nil, err
	}
	snap, err := LoadSnapshot(ctx, s.store, SnapshotParts{Logs: true})
	if err != nil {
		return nil, err
	}
	p, ok := snap.Product(productID)
	if !ok {
		return nil, apperror.NotFound("product", productID)
	}
	entries := ledger.NewIndex(snap.Products).EntriesFor(p.ID, snap.Logs)
	card := ledger.BuildStockCard(p, entries, w)
	return &card, nil
}

func (s *reportService) Recap(ctx context.Context, q Period) ([]ledger.RecapRow, error) {
	w, err := s.window(q)
	if err != nil {
		return nil, err
	}
	snap, err := LoadSnapshot(ctx, s.store, SnapshotParts{Logs: true})
	if err != nil {
		return nil, err
	}
	return ledger.BuildRecap(snap.Products, snap.Logs, w), nil
}

func (s *reportService) Movements(ctx context.Context, q MovementQuery) ([]model.LogEntry, error) {
	filter := ledger.MovementFilter{Search: q.Search, Type: model.LogType(strings.ToUpper(string(q.Type)))}
	switch filter.Type {
	case "", model.LogIn, model.LogOut, model.LogCreate, model.LogAdjust:
	default:
		return nil, apperror.Validation("unknown movement type %q", q.Type)
	}
	if !q.All {
		w, err := s.window(q.Period)
		if err != nil {
			return nil, err
		}
		filter.Window = &w
	}
	snap, err := LoadSnapshot(ctx, s.store, SnapshotParts{Logs: true, LogLimit: s.logLimit})
	if err != nil {
		return nil, err
	}
	return ledger.FilterMovements(snap.Logs, filter), nil
}

// Dashboard summarizes today and the last seven days. Migration entries are
// left out of the flows since each pair nets to zero.
func (s *reportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now().In(s.loc)
	weekStart := now.AddDate(0, 0, -6)
	snap, err := LoadSnapshot(ctx, s.store, SnapshotParts{Logs: true, Requests: true})
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalProducts: len(snap.Products),
		LowStock:      []model.Product{},
		TodayIn:       decimal.Zero,
		TodayOut:      decimal.Zero,
	}
	categories := make(map[string]*CategoryStock)
	for _, p := range snap.Products {
		if p.IsLowStock() {
			d.LowStock = append(d.LowStock, p)
		}
		c, ok := categories[p.Category]
		if !ok {
			c = &CategoryStock{Category: p.Category, Stock: decimal.Zero}
			categories[p.Category] = c
		}
		c.Stock = c.Stock.Add(p.StockToday)
		c.Products++
	}
	d.LowStockCount = len(d.LowStock)
	for _, c := range categories {
		d.StockByCategory = append(d.StockByCategory, *c)
	}
	slices.SortFunc(d.StockByCategory, func(a, b CategoryStock) int { return strings.Compare(a.Category, b.Category) })

	today := ledger.DayWindow(now, now, s.loc)
	trend := make([]TrendPoint, 7)
	days := make([]ledger.Window, 7)
	for i := range trend {
		day := weekStart.AddDate(0, 0, i)
		days[i] = ledger.DayWindow(day, day, s.loc)
		trend[i] = TrendPoint{Date: day.Format(time.DateOnly), In: decimal.Zero, Out: decimal.Zero}
	}

	for i := range snap.Logs {
		e := &snap.Logs[i]
		if e.IsMigration() {
			continue
		}
		if today.Contains(e.Timestamp) {
			d.TodayTransactions++
			switch e.Type {
			case model.LogIn:
				d.TodayIn = d.TodayIn.Add(e.QuantityChange)
			case model.LogOut:
				d.TodayOut = d.TodayOut.Add(e.QuantityChange.Abs())
			}
		}
		for j := range days {
			if !days[j].Contains(e.Timestamp) {
				continue
			}
			switch e.Type {
			case model.LogIn:
				trend[j].In = trend[j].In.Add(e.QuantityChange)
			case model.LogOut:
				trend[j].Out = trend[j].Out.Add(e.QuantityChange.Abs())
			}
			break
		}
	}
	d.Trend = trend

	for _, r := range snap.Requests {
		if r.Status == model.OpnamePending {
			d.PendingRequests++
		}
	}
	return d, nil
}
