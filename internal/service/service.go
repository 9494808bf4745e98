package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/ledger"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/logger"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	Username string
	Role     model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// Notifier receives change events after a transaction commits.
type Notifier interface {
	Publish(ev ws.Event)
}

// Deps bundles what every service needs.
type Deps struct {
	Store    repository.Store
	Notifier Notifier
	Logger   *logger.Logger
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

type base struct {
	store    repository.Store
	notifier Notifier
	log      *logger.Logger
	loc      *time.Location
	now      func() time.Time
}

func newBase(d Deps, component string) base {
	b := base{store: d.Store, notifier: d.Notifier, log: d.Logger, loc: d.Location, now: d.Now}
	if b.log == nil {
		b.log = logger.L()
	}
	b.log = b.log.WithComponent(component)
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

func (b *base) publish(action string, actor Actor, productIDs []string, format string, args ...any) {
	if b.notifier == nil {
		return
	}
	b.notifier.Publish(ws.Event{
		Type:       ws.TypeStockUpdate,
		Action:     action,
		ProductIDs: productIDs,
		User:       actor.Username,
		Message:    fmt.Sprintf(format, args...),
		At:         b.now(),
	})
}

// today is the current date in the report zone, as YYYY-MM-DD.
func (b *base) today() string {
	return b.now().In(b.loc).Format(time.DateOnly)
}

// parseDate reads a YYYY-MM-DD date as midnight in the report zone.
func (b *base) parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, value, b.loc)
	if err != nil {
		return time.Time{}, apperror.Validation("%s must be a YYYY-MM-DD date, got %q", field, value)
	}
	return t, nil
}

func newLog(typ model.LogType, unit *model.StockUnit, change decimal.Decimal, at time.Time, note string, actor Actor) model.LogEntry {
	return model.LogEntry{
		ID:             model.NewID("LOG", at),
		Type:           typ,
		StockItemID:    unit.UniqueID,
		ProductID:      unit.ProductID,
		ProductName:    unit.ProductName,
		Timestamp:      at,
		QuantityChange: change,
		Note:           note,
		User:           actor.Username,
		Origin:         model.OriginNormal,
	}
}

// recalculate rebuilds the cached stockToday of one product from its baseline and
// full log. It returns the value before and after.
func recalculate(ctx context.Context, tx repository.Store, productID string) (before, after decimal.Decimal, err error) {
	p, err := tx.Products().FindForUpdate(ctx, productID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	entries, err := tx.Logs().Find(ctx, repository.LogFilter{ProductID: p.ID, ProductName: p.Name})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	after = ledger.CurrentBalance(p.InitialStock, entries)
	if !after.Equal(p.StockToday) {
		if err := tx.Products().UpdateStock(ctx, p.ID, after); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	return p.StockToday, after, nil
}

// recalculateAll rebuilds every touched product, in a stable order.
func recalculateAll(ctx context.Context, tx repository.Store, productIDs map[string]struct{}) ([]string, error) {
	ids := make([]string, 0, len(productIDs))
	for id := range productIDs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, _, err := recalculate(ctx, tx, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// unitAdjustment is one planned in-place correction of a unit.
type unitAdjustment struct {
	unit   *model.StockUnit
	newQty decimal.Decimal
}

// spreadVariance plans how a group of units absorbs a change of its total.
// An increase lands on the first unit; a decrease drains units in order. The
// sum of the planned changes always equals variance.
func spreadVariance(units []model.StockUnit, variance decimal.Decimal) ([]unitAdjustment, error) {
	if len(units) == 0 || variance.IsZero() {
		return nil, nil
	}
	if variance.IsPositive() {
		u := units[0]
		return []unitAdjustment{{unit: &u, newQty: u.Quantity.Add(variance)}}, nil
	}

	remaining := variance.Neg()
	var plan []unitAdjustment
	for i := range units {
		if !remaining.IsPositive() {
			break
		}
		u := units[i]
		take := decimal.Min(remaining, u.Quantity)
		if !take.IsPositive() {
			continue
		}
		plan = append(plan, unitAdjustment{unit: &u, newQty: u.Quantity.Sub(take)})
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		return nil, apperror.Validation("reduction of %s exceeds the labelled quantity by %s", variance.Neg(), remaining)
	}
	return plan, nil
}

// adjustUnit writes newQty onto a unit and logs the difference. Zero difference is a no-op.
func adjustUnit(ctx context.Context, tx repository.Store, unit *model.StockUnit, newQty decimal.Decimal, note string, at time.Time, actor Actor) (bool, error) {
	if newQty.IsNegative() {
		return false, apperror.Validation("new quantity of %s must not be negative", unit.UniqueID)
	}
	diff := newQty.Sub(unit.Quantity)
	if diff.IsZero() {
		return false, nil
	}
	unit.SetQuantity(newQty)
	if err := tx.Units().Update(ctx, unit); err != nil {
		return false, err
	}
	return true, tx.Logs().Append(ctx, newLog(model.LogAdjust, unit, diff, at, note, actor))
}
