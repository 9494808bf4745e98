package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"go-stock-ledger/internal/cache"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository/memory"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/logger"
)

var (
	wib   = time.FixedZone("WIB", 7*60*60)
	admin = Actor{Username: "admin", Role: model.RoleAdmin}
	staff = Actor{Username: "budi", Role: model.RoleUser}
)

type recorder struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recorder) Publish(ev ws.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	events *recorder
	now    time.Time

	inv    InventoryService
	opname OpnameService
	report ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		store:  memory.New(),
		events: &recorder{},
		now:    time.Date(2024, time.March, 15, 10, 0, 0, 0, wib),
	}
	d := Deps{
		Store:    f.store,
		Notifier: f.events,
		Logger:   logger.Nop(),
		Location: wib,
		Now:      func() time.Time { return f.now },
	}
	f.inv = NewInventoryService(d)
	f.opname = NewOpnameService(d, cache.NewMemorySessionStore())
	f.report = NewReportService(d, 0)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) setClock(day, hour int) {
	f.now = time.Date(2024, time.March, day, hour, 0, 0, 0, wib)
}

func (f *fixture) product(t *testing.T, id, name, initial string) *model.Product {
	t.Helper()
	p, err := f.inv.CreateProduct(f.ctx, ProductInput{
		ID:           id,
		Name:         name,
		Category:     "Ingredients",
		Unit:         "Pcs",
		InitialStock: dec(initial),
		SafetyStock:  dec("5"),
	}, admin)
	require.NoError(t, err)
	return p
}

// receive registers one label of qty under batch and books it in.
func (f *fixture) receive(t *testing.T, productID, batch, qty string) model.StockUnit {
	t.Helper()
	reg, err := f.inv.RegisterUnits(f.ctx, RegisterUnitsRequest{
		ProductID:   productID,
		BatchCode:   batch,
		Supplier:    "PT Sumber",
		LabelCount:  1,
		QtyPerLabel: dec(qty),
	}, admin)
	require.NoError(t, err)
	units, err := f.inv.Inbound(f.ctx, InboundRequest{UnitIDs: []string{reg.Unit.UniqueID}}, admin)
	require.NoError(t, err)
	require.Len(t, units, 1)
	return units[0]
}

func (f *fixture) stock(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	p, err := f.store.Products().FindByID(f.ctx, productID)
	require.NoError(t, err)
	return p.StockToday
}

func (f *fixture) unit(t *testing.T, id string) *model.StockUnit {
	t.Helper()
	u, err := f.store.Units().FindByID(f.ctx, id)
	require.NoError(t, err)
	return u
}

func (f *fixture) logs(t *testing.T) []model.LogEntry {
	t.Helper()
	snap, err := LoadSnapshot(f.ctx, f.store, SnapshotParts{Logs: true})
	require.NoError(t, err)
	return snap.Logs
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
