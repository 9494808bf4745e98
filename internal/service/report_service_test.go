package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
)

func TestStockCardRunsBalanceOverPeriod(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "5")
	f.setClock(1, 9)
	u := f.receive(t, "P001", "B1", "10")
	for _, day := range []int{10, 20} {
		f.setClock(day, 9)
		_, err := f.inv.Outbound(f.ctx, OutboundRequest{Lines: []OutboundLine{
			{UnitID: u.UniqueID, Qty: dec("2"), Recipient: "Store A"},
		}}, admin)
		require.NoError(t, err)
	}
	f.setClock(25, 9)

	card, err := f.report.StockCard(f.ctx, "P001", Period{From: "2024-03-05", To: "2024-03-15"})
	require.NoError(t, err)
	assertDecimal(t, "15", card.OpeningBalance)
	require.Len(t, card.Lines, 1)
	assertDecimal(t, "13", card.Lines[0].BalanceAfter)
	assertDecimal(t, "13", card.ClosingBalance)

	// Adjacent windows chain into the running total.
	next, err := f.report.StockCard(f.ctx, "P001", Period{From: "2024-03-16", To: "2024-03-25"})
	require.NoError(t, err)
	assert.True(t, card.ClosingBalance.Equal(next.OpeningBalance))
	assertDecimal(t, "11", next.ClosingBalance)

	_, err = f.report.StockCard(f.ctx, "NOPE", Period{})
	assert.True(t, apperror.IsNotFound(err))
	_, err = f.report.StockCard(f.ctx, "P001", Period{From: "2024-03-20", To: "2024-03-10"})
	assert.True(t, apperror.IsValidation(err))
}

func TestRecapOrdersCodesNumerically(t *testing.T) {
	f := newFixture(t)
	f.product(t, "IMI10", "Ragi", "1")
	f.product(t, "IMI2", "Garam", "2")
	f.product(t, "IMI1", "Gula", "3")
	f.receive(t, "IMI2", "B1", "4")

	rows, err := f.report.Recap(f.ctx, Period{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"IMI1", "IMI2", "IMI10"}, []string{rows[0].ProductID, rows[1].ProductID, rows[2].ProductID})
	assertDecimal(t, "2", rows[1].OpeningStock)
	assertDecimal(t, "4", rows[1].InRange)
	assertDecimal(t, "6", rows[1].StockEnd)
}

func TestMovementsHideMigration(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "20")
	u := f.receive(t, "P001", "B1", "10")
	reg, err := f.inv.RegisterUnits(f.ctx, RegisterUnitsRequest{
		ProductID: "P001", BatchCode: "OLD", Supplier: "Gudang Lama", LabelCount: 1, QtyPerLabel: dec("20"),
	}, admin)
	require.NoError(t, err)
	_, err = f.inv.Inbound(f.ctx, InboundRequest{UnitIDs: []string{reg.Unit.UniqueID}, IsMigration: true}, admin)
	require.NoError(t, err)
	f.setClock(15, 12)
	_, err = f.inv.Outbound(f.ctx, OutboundRequest{Lines: []OutboundLine{
		{UnitID: u.UniqueID, Qty: dec("1"), Recipient: "Toko Maju"},
	}}, staff)
	require.NoError(t, err)

	all, err := f.report.Movements(f.ctx, MovementQuery{All: true})
	require.NoError(t, err)
	for _, e := range all {
		assert.False(t, e.IsMigration())
	}
	require.NotEmpty(t, all)
	assert.Equal(t, model.LogOut, all[0].Type)

	outs, err := f.report.Movements(f.ctx, MovementQuery{Type: "out", Search: "maju"})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "budi", outs[0].User)

	_, err = f.report.Movements(f.ctx, MovementQuery{Type: "MOVE"})
	assert.True(t, apperror.IsValidation(err))
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "0")
	f.product(t, "P002", "Gula Pasir", "3")
	u := f.receive(t, "P001", "B1", "10")
	_, err := f.inv.Outbound(f.ctx, OutboundRequest{Lines: []OutboundLine{
		{UnitID: u.UniqueID, Qty: dec("4"), Recipient: "Store A"},
	}}, admin)
	require.NoError(t, err)

	reg, err := f.inv.RegisterUnits(f.ctx, RegisterUnitsRequest{
		ProductID: "P002", BatchCode: "OLD", Supplier: "Gudang Lama", LabelCount: 1, QtyPerLabel: dec("3"),
	}, admin)
	require.NoError(t, err)
	_, err = f.inv.Inbound(f.ctx, InboundRequest{UnitIDs: []string{reg.Unit.UniqueID}, IsMigration: true}, admin)
	require.NoError(t, err)

	_, err = f.opname.UpdateLine(f.ctx, "s1", "P001|B1", countTo("5"), staff)
	require.NoError(t, err)
	_, err = f.opname.Commit(f.ctx, "s1", staff)
	require.NoError(t, err)

	d, err := f.report.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TotalProducts)
	assert.Equal(t, 1, d.LowStockCount)
	assert.Equal(t, "P002", d.LowStock[0].ID)
	assertDecimal(t, "10", d.TodayIn)
	assertDecimal(t, "4", d.TodayOut)
	assert.Equal(t, 1, d.PendingRequests)

	require.Len(t, d.Trend, 7)
	assert.Equal(t, "2024-03-09", d.Trend[0].Date)
	assert.Equal(t, "2024-03-15", d.Trend[6].Date)
	assertDecimal(t, "10", d.Trend[6].In)

	require.Len(t, d.StockByCategory, 1)
	assertDecimal(t, "9", d.StockByCategory[0].Stock)
}
