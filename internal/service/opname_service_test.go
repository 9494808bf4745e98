package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/ledger"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func countTo(qty string) LineUpdate {
	return LineUpdate{NewTotalQty: ptr(dec(qty))}
}

func TestOpnameCommitAppliesVariance(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "0")
	u := f.receive(t, "P001", "B1", "100")
	_, err := f.inv.Outbound(f.ctx, OutboundRequest{Lines: []OutboundLine{
		{UnitID: u.UniqueID, Qty: dec("40"), Recipient: "Store A"},
	}}, admin)
	require.NoError(t, err)

	v, err := f.opname.UpdateLine(f.ctx, "s1", "P001|B1", countTo("55"), admin)
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	assertDecimal(t, "60", v.Lines[0].System)
	assertDecimal(t, "-5", v.Lines[0].Variance)

	res, err := f.opname.Commit(f.ctx, "s1", admin)
	require.NoError(t, err)
	assert.Len(t, res.Applied, 1)
	assert.Empty(t, res.Requests)

	assertDecimal(t, "55", f.unit(t, u.UniqueID).Quantity)
	assertDecimal(t, "55", f.stock(t, "P001"))
	logs := f.logs(t)
	last := logs[len(logs)-1]
	assert.Equal(t, model.LogAdjust, last.Type)
	assertDecimal(t, "-5", last.QuantityChange)
	assert.Equal(t, "Audit B1", last.Note)

	v, err = f.opname.Session(f.ctx, "s1", admin)
	require.NoError(t, err)
	assert.Zero(t, v.Pending)
	assert.Contains(t, f.events.actions(), "opname")
}

func TestOpnameSkipsUnchangedLines(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "0")
	f.receive(t, "P001", "B1", "10")

	v, err := f.opname.UpdateLine(f.ctx, "s1", "P001|B1", countTo("10"), admin)
	require.NoError(t, err)
	assert.Zero(t, v.Pending)

	_, err = f.opname.Commit(f.ctx, "s1", admin)
	assert.True(t, apperror.IsValidation(err))

	v, err = f.opname.UpdateLine(f.ctx, "s1", "P001|B1", LineUpdate{Note: ptr("dicek ulang")}, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Pending)
	assert.True(t, v.Lines[0].Variance.IsZero())
}

func TestOpnameRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "0")

	_, err := f.opname.UpdateLine(f.ctx, "s1", "P001|NOPE", countTo("1"), admin)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.opname.UpdateLine(f.ctx, "s1", "P001|GLOBAL", countTo("-1"), admin)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.opname.UpdateLine(f.ctx, "s1", "P001|GLOBAL", LineUpdate{RefDate: ptr("01/03/2024")}, admin)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.opname.Session(f.ctx, " ", admin)
	assert.True(t, apperror.IsValidation(err))
}

func TestOpnameScanCountsFromZero(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "0")
	u := f.receive(t, "P001", "B1", "10")

	res, err := f.opname.Scan(f.ctx, "s1", u.UniqueID+", p001;nope", admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"NOPE"}, res.Unknown)
	require.Len(t, res.Session.Lines, 1)
	assertDecimal(t, "2", res.Session.Lines[0].Physical)
	assert.Equal(t, ledger.ScanNote, res.Session.Lines[0].Note)
	assert.Equal(t, "2024-03-01", res.Session.DefaultRefDate)

	v, err := f.opname.ResetLine(f.ctx, "s1", "P001|B1", admin)
	require.NoError(t, err)
	assert.Zero(t, v.Pending)

	_, err = f.opname.Scan(f.ctx, "s1", " ,; ", admin)
	assert.True(t, apperror.IsValidation(err))
}

func TestOpnameSessionsArePerUser(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "4")

	_, err := f.opname.UpdateLine(f.ctx, "s1", "P001|GLOBAL", countTo("9"), staff)
	require.NoError(t, err)

	v, err := f.opname.Session(f.ctx, "s1", admin)
	require.NoError(t, err)
	assert.Zero(t, v.Pending)

	require.NoError(t, f.opname.Discard(f.ctx, "s1", staff))
	v, err = f.opname.Session(f.ctx, "s1", staff)
	require.NoError(t, err)
	assert.Zero(t, v.Pending)
}

func TestOpnameGlobalGroupSynthesizesUnit(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P002", "Gula Pasir", "30")

	groups, err := f.opname.Groups(f.ctx, "gula")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].IsGlobal())

	_, err = f.opname.UpdateLine(f.ctx, "s1", "P002|GLOBAL", countTo("25"), admin)
	require.NoError(t, err)
	_, err = f.opname.Commit(f.ctx, "s1", admin)
	require.NoError(t, err)

	units, err := f.inv.Units(f.ctx, repository.UnitFilter{ProductID: "P002"})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, opnameBatchCode, units[0].BatchCode)
	assert.Equal(t, model.StatusInStock, units[0].Status)
	assertDecimal(t, "25", units[0].Quantity)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assertDecimal(t, "-5", logs[0].QuantityChange)
	assert.Equal(t, "Audit Global", logs[0].Note)
	assertDecimal(t, "25", f.stock(t, "P002"))
}

func TestOpnameBackdatedInitial(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "0")
	f.setClock(5, 9)
	u := f.receive(t, "P001", "B1", "50")
	f.setClock(20, 9)
	_, err := f.inv.Outbound(f.ctx, OutboundRequest{Lines: []OutboundLine{
		{UnitID: u.UniqueID, Qty: dec("10"), Recipient: "Store A"},
	}}, admin)
	require.NoError(t, err)
	f.setClock(25, 9)

	_, err = f.opname.UpdateLine(f.ctx, "s1", "P001|B1", LineUpdate{
		NewTotalQty: ptr(dec("100")),
		IsInitial:   ptr(true),
		RefDate:     ptr("2024-03-10"),
	}, admin)
	require.NoError(t, err)
	_, err = f.opname.Commit(f.ctx, "s1", admin)
	require.NoError(t, err)

	p, err := f.inv.Product(f.ctx, "P001")
	require.NoError(t, err)
	// Everything from the 10th on sums to -10.
	assertDecimal(t, "110", p.InitialStock)
	// X plus the +50 booked before the reference date.
	assertDecimal(t, "150", p.StockToday)
	assertDecimal(t, "40", f.unit(t, u.UniqueID).Quantity)
}

func TestOpnameBackdatedLineIgnoresBatchOrder(t *testing.T) {
	cases := map[string]struct{ direct, backdated string }{
		"direct batch sorts first": {direct: "A", backdated: "B"},
		"direct batch sorts last":  {direct: "B", backdated: "A"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.product(t, "P001", "Tepung Terigu", "0")
			f.setClock(5, 9)
			units := map[string]model.StockUnit{
				"A": f.receive(t, "P001", "A", "50"),
				"B": f.receive(t, "P001", "B", "50"),
			}
			f.setClock(20, 9)

			_, err := f.opname.UpdateLine(f.ctx, "s1", "P001|"+tc.direct, countTo("40"), admin)
			require.NoError(t, err)
			_, err = f.opname.UpdateLine(f.ctx, "s1", "P001|"+tc.backdated, LineUpdate{
				NewTotalQty: ptr(dec("50")),
				IsInitial:   ptr(true),
				RefDate:     ptr("2024-03-01"),
			}, admin)
			require.NoError(t, err)
			res, err := f.opname.Commit(f.ctx, "s1", admin)
			require.NoError(t, err)
			assert.Len(t, res.Applied, 2)

			p, err := f.inv.Product(f.ctx, "P001")
			require.NoError(t, err)
			// Both receipts fall after the reference date.
			assertDecimal(t, "-50", p.InitialStock)
			assertDecimal(t, "40", p.StockToday)
			assertDecimal(t, "40", f.unit(t, units[tc.direct].UniqueID).Quantity)
			assertDecimal(t, "50", f.unit(t, units[tc.backdated].UniqueID).Quantity)
		})
	}
}

func TestOpnameRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "0")
	u := f.receive(t, "P001", "B1", "60")

	_, err := f.opname.UpdateLine(f.ctx, "s1", "P001|B1", LineUpdate{NewTotalQty: ptr(dec("57")), Note: ptr("tikus")}, staff)
	require.NoError(t, err)
	res, err := f.opname.Commit(f.ctx, "s1", staff)
	require.NoError(t, err)
	require.Len(t, res.Requests, 1)
	req := res.Requests[0]
	assert.Equal(t, model.OpnamePending, req.Status)
	assertDecimal(t, "-3", req.Variance)
	assertDecimal(t, "60", f.stock(t, "P001"))

	pending, err := f.opname.Requests(f.ctx, model.OpnamePending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.opname.Approve(f.ctx, req.ID, staff)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	approved, err := f.opname.Approve(f.ctx, req.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, model.OpnameApproved, approved.Status)
	assert.Equal(t, "admin", approved.ResolvedBy)
	assertDecimal(t, "57", f.unit(t, u.UniqueID).Quantity)
	assertDecimal(t, "57", f.stock(t, "P001"))

	logs := f.logs(t)
	assert.Equal(t, "tikus", logs[len(logs)-1].Note)

	_, err = f.opname.Approve(f.ctx, req.ID, admin)
	assert.True(t, apperror.IsConflict(err))
	_, err = f.opname.Reject(f.ctx, req.ID, admin)
	assert.True(t, apperror.IsConflict(err))
	assert.Len(t, f.logs(t), len(logs))
}

func TestOpnameRejectLeavesStock(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "12")

	_, err := f.opname.UpdateLine(f.ctx, "s1", "P001|GLOBAL", countTo("2"), staff)
	require.NoError(t, err)
	res, err := f.opname.Commit(f.ctx, "s1", staff)
	require.NoError(t, err)

	rejected, err := f.opname.Reject(f.ctx, res.Requests[0].ID, admin)
	require.NoError(t, err)
	assert.Equal(t, model.OpnameRejected, rejected.Status)
	assertDecimal(t, "12", f.stock(t, "P001"))
	assert.Empty(t, f.logs(t))

	_, err = f.opname.Approve(f.ctx, "OPR-missing", admin)
	assert.True(t, apperror.IsNotFound(err))
}

func TestOpnameApproveRefusesRegroupedProduct(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P001", "Tepung Terigu", "12")

	_, err := f.opname.UpdateLine(f.ctx, "s1", "P001|GLOBAL", countTo("10"), staff)
	require.NoError(t, err)
	res, err := f.opname.Commit(f.ctx, "s1", staff)
	require.NoError(t, err)
	require.Len(t, res.Requests, 1)

	u := f.receive(t, "P001", "B1", "30")
	logs := f.logs(t)

	_, err = f.opname.Approve(f.ctx, res.Requests[0].ID, admin)
	assert.True(t, apperror.IsConflict(err))

	pending, err := f.opname.Requests(f.ctx, model.OpnamePending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assertDecimal(t, "42", f.stock(t, "P001"))
	assertDecimal(t, "30", f.unit(t, u.UniqueID).Quantity)
	assert.Len(t, f.logs(t), len(logs))
}

func TestSpreadVariance(t *testing.T) {
	units := []model.StockUnit{
		{UniqueID: "A", Quantity: decimal.NewFromInt(3)},
		{UniqueID: "B", Quantity: decimal.NewFromInt(5)},
	}

	plan, err := spreadVariance(units, decimal.NewFromInt(4))
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "A", plan[0].unit.UniqueID)
	assertDecimal(t, "7", plan[0].newQty)

	plan, err = spreadVariance(units, decimal.NewFromInt(-6))
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assertDecimal(t, "0", plan[0].newQty)
	assertDecimal(t, "2", plan[1].newQty)

	_, err = spreadVariance(units, decimal.NewFromInt(-9))
	assert.True(t, apperror.IsValidation(err))
}
