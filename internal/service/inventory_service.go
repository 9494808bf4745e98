package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/ledger"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/validator"
)

const (
	defaultInboundNote  = "Penerimaan Barang"
	defaultOutboundNote = "Pengeluaran Barang"
	defaultAdjustNote   = "Penyesuaian Stok (Audit)"

	correctionBatchCode  = "ADMIN-CORRECTION"
	correctionNotePrefix = "[ADMIN FIX] "
)

type InventoryService interface {
	RegisterUnits(ctx context.Context, req RegisterUnitsRequest, actor Actor) (*RegisterResult, error)
	Inbound(ctx context.Context, req InboundRequest, actor Actor) ([]model.StockUnit, error)
	Outbound(ctx context.Context, req OutboundRequest, actor Actor) ([]model.StockUnit, error)
	Adjust(ctx context.Context, req AdjustRequest, actor Actor) (*model.StockUnit, error)
	CorrectProduct(ctx context.Context, productID string, req CorrectionRequest, actor Actor) (*model.Product, error)

	Recalculate(ctx context.Context, productID string) (*Drift, error)
	RecalculateAll(ctx context.Context) ([]Drift, error)

	CreateProduct(ctx context.Context, in ProductInput, actor Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, in ProductInput, actor Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string, actor Actor) error

	Products(ctx context.Context) ([]model.Product, error)
	Product(ctx context.Context, id string) (*model.Product, error)
	Units(ctx context.Context, filter repository.UnitFilter) ([]model.StockUnit, error)
	Batches(ctx context.Context, productID string) ([]model.StockUnit, error)
	LookupCode(ctx context.Context, code string) (*LookupResult, error)
}

type RegisterUnitsRequest struct {
	ProductID   string          `json:"product_id" validate:"required"`
	BatchCode   string          `json:"batch_code"`
	ArrivalDate string          `json:"arrival_date" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate  string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Supplier    string          `json:"supplier" validate:"required"`
	LabelCount  int             `json:"label_count" validate:"gt=0"`
	QtyPerLabel decimal.Decimal `json:"qty_per_label" validate:"gt=0"`
	Note        string          `json:"note"`
}

// RegisterResult carries the registered unit and what each printed label shows.
type RegisterResult struct {
	Unit        model.StockUnit `json:"unit"`
	LabelCount  int             `json:"label_count"`
	QtyPerLabel decimal.Decimal `json:"qty_per_label"`
}

type InboundRequest struct {
	UnitIDs     []string          `json:"unit_ids" validate:"required,min=1"`
	Note        string            `json:"note"`
	UnitNotes   map[string]string `json:"unit_notes"`
	IsMigration bool              `json:"is_migration"`
}

type OutboundLine struct {
	UnitID    string          `json:"unit_id" validate:"required"`
	Qty       decimal.Decimal `json:"qty" validate:"gt=0"`
	Recipient string          `json:"recipient" validate:"required"`
	Note      string          `json:"note"`
	// Version, when set, is the unit version the caller read; a newer one is a Conflict.
	Version *int64 `json:"version,omitempty"`
}

type OutboundRequest struct {
	Lines []OutboundLine `json:"lines" validate:"required,min=1,dive"`
}

type AdjustRequest struct {
	UnitID  string          `json:"unit_id" validate:"required"`
	NewQty  decimal.Decimal `json:"new_qty" validate:"gte=0"`
	Note    string          `json:"note"`
	Version *int64          `json:"version,omitempty"`
}

type CorrectionRequest struct {
	Delta decimal.Decimal `json:"delta"`
	Note  string          `json:"note"`
}

type ProductInput struct {
	ID           string          `json:"id"`
	Name         string          `json:"name" validate:"required"`
	Category     string          `json:"category" validate:"required"`
	Unit         string          `json:"unit" validate:"required"`
	Origin       string          `json:"origin" validate:"omitempty,oneof=I E i e"`
	InitialStock decimal.Decimal `json:"initial_stock"`
	SafetyStock  decimal.Decimal `json:"safety_stock" validate:"gte=0"`
}

// Drift reports a cached stockToday that disagreed with the log.
type Drift struct {
	ProductID string          `json:"product_id"`
	Cached    decimal.Decimal `json:"cached"`
	Actual    decimal.Decimal `json:"actual"`
}

// LookupResult is what a scanned code resolves to: a unit with its history, or a product.
type LookupResult struct {
	Unit    *model.StockUnit  `json:"unit,omitempty"`
	Logs    []model.LogEntry  `json:"logs,omitempty"`
	Product *model.Product    `json:"product,omitempty"`
	Batches []model.StockUnit `json:"batches,omitempty"`
}

type inventoryService struct {
	base
}

func NewInventoryService(d Deps) InventoryService {
	return &inventoryService{base: newBase(d, "inventory")}
}

func (s *inventoryService) RegisterUnits(ctx context.Context, req RegisterUnitsRequest, actor Actor) (*RegisterResult, error) {
	req.Supplier = strings.TrimSpace(req.Supplier)
	if req.Supplier == "" {
		return nil, apperror.Validation("supplier is required")
	}
	if err := validator.Check(&req); err != nil {
		return nil, err
	}

	now := s.now()
	if req.ArrivalDate == "" {
		req.ArrivalDate = s.today()
	}
	batch := strings.TrimSpace(req.BatchCode)
	if batch == "" {
		batch = ledger.AutoBatchCode(now.In(s.loc), model.RandomSuffix(3))
	}
	total := req.QtyPerLabel.Mul(decimal.NewFromInt(int64(req.LabelCount)))

	var unit model.StockUnit
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.Products().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		unit = model.StockUnit{
			UniqueID:    ledger.NewUnitID(p.ID, batch, req.ArrivalDate, req.ExpiryDate, model.RandomSuffix(4)),
			ProductID:   p.ID,
			ProductName: p.Name,
			BatchCode:   batch,
			ArrivalDate: req.ArrivalDate,
			ExpiryDate:  req.ExpiryDate,
			Supplier:    req.Supplier,
			Status:      model.StatusCreated,
			Quantity:    total,
			Note:        req.Note,
			CreatedAt:   now,
		}
		if err := tx.Units().Create(ctx, &unit); err != nil {
			return err
		}
		return tx.Logs().Append(ctx, newLog(model.LogCreate, &unit, decimal.Zero, now, "Registrasi Label", actor))
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("units registered", "unit_id", unit.UniqueID, "labels", req.LabelCount, "user", actor.Username)
	s.publish("units_registered", actor, []string{unit.ProductID}, "%s registered %d labels of %s", actor.Username, req.LabelCount, unit.ProductName)
	return &RegisterResult{Unit: unit, LabelCount: req.LabelCount, QtyPerLabel: req.QtyPerLabel}, nil
}

func (s *inventoryService) Inbound(ctx context.Context, req InboundRequest, actor Actor) ([]model.StockUnit, error) {
	if err := validator.Check(&req); err != nil {
		return nil, err
	}

	// 1. Normalisasi & cek duplikat sebelum menyentuh data
	ids := make([]string, 0, len(req.UnitIDs))
	seen := make(map[string]bool, len(req.UnitIDs))
	notes := make(map[string]string, len(req.UnitNotes))
	for raw, note := range req.UnitNotes {
		notes[ledger.SanitizeCode(raw)] = note
	}
	for _, raw := range req.UnitIDs {
		id := ledger.SanitizeCode(raw)
		if id == "" {
			return nil, apperror.Validation("unit id %q is empty after normalization", raw)
		}
		if seen[id] {
			return nil, apperror.Validation("unit %s is listed more than once", id).WithDetail("id", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	now := s.now()
	var units []model.StockUnit
	var touched []string
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		// 2. Semua unit harus CREATED
		units = make([]model.StockUnit, 0, len(ids))
		for _, id := range ids {
			u, err := tx.Units().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if u.Status != model.StatusCreated {
				return apperror.NotFound("registered unit awaiting inbound", id).WithDetail("status", u.Status)
			}
			units = append(units, *u)
		}

		// 3. Tandai IN_STOCK lalu catat log
		products := make(map[string]struct{})
		var entries []model.LogEntry
		for i := range units {
			u := &units[i]
			u.Status = model.StatusInStock
			if err := tx.Units().Update(ctx, u); err != nil {
				return err
			}
			products[u.ProductID] = struct{}{}

			note := notes[u.UniqueID]
			if note == "" {
				note = req.Note
			}
			if !req.IsMigration {
				if note == "" {
					note = defaultInboundNote
				}
				entries = append(entries, newLog(model.LogIn, u, u.Quantity, now, note, actor))
				continue
			}

			if note == "" {
				note = "Penerimaan"
			}
			in := newLog(model.LogIn, u, u.Quantity, now, "Migrasi: "+note, actor)
			in.Origin = model.OriginMigration
			offset := newLog(model.LogAdjust, u, u.Quantity.Neg(), now.Add(time.Millisecond), "Konversi Saldo Lama ke Stiker ["+lastN(u.UniqueID, 6)+"]", actor)
			offset.StockItemID = model.MigrationStockItemID
			offset.Origin = model.OriginMigration
			entries = append(entries, in, offset)
		}
		if err := tx.Logs().Append(ctx, entries...); err != nil {
			return err
		}

		var err error
		touched, err = recalculateAll(ctx, tx, products)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("inbound committed", "count", len(units), "migration", req.IsMigration, "product_ids", touched, "user", actor.Username)
	s.publish("inbound", actor, touched, "%s received %d units", actor.Username, len(units))
	return units, nil
}

func (s *inventoryService) Outbound(ctx context.Context, req OutboundRequest, actor Actor) ([]model.StockUnit, error) {
	for i := range req.Lines {
		req.Lines[i].UnitID = ledger.SanitizeCode(req.Lines[i].UnitID)
		req.Lines[i].Recipient = strings.TrimSpace(req.Lines[i].Recipient)
	}
	if err := validator.Check(&req); err != nil {
		return nil, err
	}

	now := s.now()
	var updated []model.StockUnit
	var touched []string
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		// 1. Validasi seluruh baris dulu (all-or-nothing)
		byID := make(map[string]*model.StockUnit)
		var order []string
		remaining := make(map[string]decimal.Decimal)
		for _, line := range req.Lines {
			u, ok := byID[line.UnitID]
			if !ok {
				found, err := tx.Units().FindByID(ctx, line.UnitID)
				if err != nil {
					return err
				}
				u = found
				byID[u.UniqueID] = u
				order = append(order, u.UniqueID)
				remaining[u.UniqueID] = u.Quantity
			}
			if line.Version != nil && *line.Version != u.Version {
				return apperror.Conflict("stock unit %s changed since it was read", u.UniqueID).
					WithDetail("id", u.UniqueID)
			}
			if u.Status != model.StatusInStock {
				return apperror.Conflict("stock unit %s is %s, not IN_STOCK", u.UniqueID, u.Status).
					WithDetail("id", u.UniqueID)
			}
			left := remaining[u.UniqueID].Sub(line.Qty)
			if left.IsNegative() {
				return apperror.Validation("requested %s of %s exceeds the available %s", line.Qty, u.UniqueID, remaining[u.UniqueID]).
					WithDetail("id", u.UniqueID)
			}
			remaining[u.UniqueID] = left
		}

		// 2. Update unit, lalu append log
		products := make(map[string]struct{})
		for _, id := range order {
			u := byID[id]
			u.SetQuantity(remaining[id])
			if err := tx.Units().Update(ctx, u); err != nil {
				return err
			}
			products[u.ProductID] = struct{}{}
			updated = append(updated, *u)
		}
		entries := make([]model.LogEntry, 0, len(req.Lines))
		for _, line := range req.Lines {
			note := line.Note
			if note == "" {
				note = defaultOutboundNote
			}
			e := newLog(model.LogOut, byID[line.UnitID], line.Qty.Neg(), now, note, actor)
			e.Recipient = line.Recipient
			entries = append(entries, e)
		}
		if err := tx.Logs().Append(ctx, entries...); err != nil {
			return err
		}

		var err error
		touched, err = recalculateAll(ctx, tx, products)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("outbound committed", "lines", len(req.Lines), "product_ids", touched, "user", actor.Username)
	s.publish("outbound", actor, touched, "%s dispatched %d lines", actor.Username, len(req.Lines))
	return updated, nil
}

func (s *inventoryService) Adjust(ctx context.Context, req AdjustRequest, actor Actor) (*model.StockUnit, error) {
	req.UnitID = ledger.SanitizeCode(req.UnitID)
	if err := validator.Check(&req); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = defaultAdjustNote
	}

	var unit *model.StockUnit
	var changed bool
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		unit, err = tx.Units().FindByID(ctx, req.UnitID)
		if err != nil {
			return err
		}
		if req.Version != nil && *req.Version != unit.Version {
			return apperror.Conflict("stock unit %s changed since it was read", unit.UniqueID)
		}
		if unit.Status == model.StatusCreated || unit.Status == model.StatusPendingApproval {
			return apperror.Conflict("stock unit %s is %s and cannot be adjusted", unit.UniqueID, unit.Status)
		}
		changed, err = adjustUnit(ctx, tx, unit, req.NewQty, note, s.now(), actor)
		if err != nil || !changed {
			return err
		}
		_, _, err = recalculate(ctx, tx, unit.ProductID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Infow("unit adjusted", "unit_id", unit.UniqueID, "new_qty", unit.Quantity, "user", actor.Username)
		s.publish("adjustment", actor, []string{unit.ProductID}, "%s adjusted %s", actor.Username, unit.UniqueID)
	}
	return unit, nil
}

func (s *inventoryService) CorrectProduct(ctx context.Context, productID string, req CorrectionRequest, actor Actor) (*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only an admin can correct product stock")
	}
	note := strings.TrimSpace(req.Note)
	if note == "" {
		return nil, apperror.Validation("a reason is required for a stock correction")
	}
	if req.Delta.IsZero() {
		return nil, apperror.Validation("correction delta must not be zero")
	}

	now := s.now()
	var product *model.Product
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.Products().FindForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.StockToday.Add(req.Delta).IsNegative() {
			return apperror.Validation("correction would take %s below zero", p.ID)
		}
		units, err := tx.Units().FindAll(ctx, repository.UnitFilter{ProductID: p.ID, Status: model.StatusInStock})
		if err != nil {
			return err
		}

		fullNote := correctionNotePrefix + note
		if len(units) == 0 {
			// Belum ada unit berlabel: buat unit koreksi yang memuat saldo lama.
			unit := model.StockUnit{
				UniqueID:    model.NewID("CORR-"+p.ID, now),
				ProductID:   p.ID,
				ProductName: p.Name,
				BatchCode:   correctionBatchCode,
				ArrivalDate: s.today(),
				Supplier:    "SYSTEM",
				CreatedAt:   now,
			}
			unit.SetQuantity(p.StockToday.Add(req.Delta))
			if err := tx.Units().Create(ctx, &unit); err != nil {
				return err
			}
			if err := tx.Logs().Append(ctx, newLog(model.LogAdjust, &unit, req.Delta, now, fullNote, actor)); err != nil {
				return err
			}
		} else {
			plan, err := spreadVariance(units, req.Delta)
			if err != nil {
				return err
			}
			for _, step := range plan {
				if _, err := adjustUnit(ctx, tx, step.unit, step.newQty, fullNote, now, actor); err != nil {
					return err
				}
			}
		}

		if _, _, err := recalculate(ctx, tx, p.ID); err != nil {
			return err
		}
		product, err = tx.Products().FindByID(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("product corrected", "product_id", productID, "delta", req.Delta, "user", actor.Username)
	s.publish("correction", actor, []string{productID}, "%s corrected %s by %s", actor.Username, product.Name, req.Delta)
	return product, nil
}

func (s *inventoryService) Recalculate(ctx context.Context, productID string) (*Drift, error) {
	var drift Drift
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		before, after, err := recalculate(ctx, tx, productID)
		drift = Drift{ProductID: productID, Cached: before, Actual: after}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &drift, nil
}

// RecalculateAll rebuilds every product in its own transaction and reports the ones that drifted.
func (s *inventoryService) RecalculateAll(ctx context.Context) ([]Drift, error) {
	products, err := s.store.Products().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	var drifts []Drift
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return drifts, err
		}
		d, err := s.Recalculate(ctx, p.ID)
		if apperror.IsNotFound(err) {
			continue // dihapus di tengah jalan
		}
		if err != nil {
			return drifts, err
		}
		if !d.Cached.Equal(d.Actual) {
			drifts = append(drifts, *d)
		}
	}
	return drifts, nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, in ProductInput, actor Actor) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ID = ledger.SanitizeCode(in.ID)
	if err := validator.Check(&in); err != nil {
		return nil, err
	}

	var product model.Product
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := s.ensureUniqueName(ctx, tx, "", in.Name); err != nil {
			return err
		}
		id := in.ID
		if id == "" {
			origin := in.Origin
			if origin == "" {
				origin = "I"
			}
			prefix := ledger.CategoryChar(in.Category) + "M" + strings.ToUpper(origin)
			existing, err := tx.Products().IDs(ctx, prefix)
			if err != nil {
				return err
			}
			if id, err = ledger.NextProductCode(in.Category, origin, existing); err != nil {
				return apperror.Validation("%s", err.Error())
			}
		}
		product = model.Product{
			ID:           id,
			Name:         in.Name,
			Category:     in.Category,
			Unit:         in.Unit,
			InitialStock: in.InitialStock,
			SafetyStock:  in.SafetyStock,
			StockToday:   in.InitialStock,
			Audit:        model.Audit{CreatedBy: actor.Username, UpdatedBy: actor.Username},
		}
		return tx.Products().Create(ctx, &product)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("product created", "product_id", product.ID, "user", actor.Username)
	s.publish("product_created", actor, []string{product.ID}, "%s created product '%s'", actor.Username, product.Name)
	return &product, nil
}

// UpdateProduct changes master data only. Stock figures move through transactions.
func (s *inventoryService) UpdateProduct(ctx context.Context, id string, in ProductInput, actor Actor) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validator.Check(&in); err != nil {
		return nil, err
	}

	var product *model.Product
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := s.ensureUniqueName(ctx, tx, id, in.Name); err != nil {
			return err
		}
		p, err := tx.Products().FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.Name = in.Name
		p.Category = in.Category
		p.Unit = in.Unit
		p.SafetyStock = in.SafetyStock
		p.UpdatedBy = actor.Username
		if err := tx.Products().UpdateMaster(ctx, p); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("product_updated", actor, []string{id}, "%s updated product '%s'", actor.Username, product.Name)
	return product, nil
}

// DeleteProduct removes the catalog entry only; its units and log rows stay as history.
func (s *inventoryService) DeleteProduct(ctx context.Context, id string, actor Actor) error {
	if !actor.IsAdmin() {
		return apperror.Forbidden("only an admin can delete products")
	}
	if err := s.store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Products().Delete(ctx, id)
	}); err != nil {
		return err
	}
	s.log.Warnw("product deleted", "product_id", id, "user", actor.Username)
	s.publish("product_deleted", actor, []string{id}, "%s deleted product %s", actor.Username, id)
	return nil
}

// ensureUniqueName keeps names unambiguous, since older log rows join on them.
func (s *inventoryService) ensureUniqueName(ctx context.Context, tx repository.Store, selfID, name string) error {
	products, err := tx.Products().FindAll(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if p.ID != selfID && strings.EqualFold(strings.TrimSpace(p.Name), name) {
			return apperror.Conflict("product name %q is already used by %s", name, p.ID)
		}
	}
	return nil
}

func (s *inventoryService) Products(ctx context.Context) ([]model.Product, error) {
	return s.store.Products().FindAll(ctx)
}

func (s *inventoryService) Product(ctx context.Context, id string) (*model.Product, error) {
	return s.store.Products().FindByID(ctx, id)
}

func (s *inventoryService) Units(ctx context.Context, filter repository.UnitFilter) ([]model.StockUnit, error) {
	return s.store.Units().FindAll(ctx, filter)
}

func (s *inventoryService) Batches(ctx context.Context, productID string) ([]model.StockUnit, error) {
	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	units, err := s.store.Units().FindAll(ctx, repository.UnitFilter{ProductID: p.ID, Status: model.StatusInStock})
	if err != nil {
		return nil, err
	}
	return ledger.BatchBreakdown(p, units), nil
}

func (s *inventoryService) LookupCode(ctx context.Context, code string) (*LookupResult, error) {
	clean := ledger.SanitizeCode(code)
	if clean == "" {
		return nil, apperror.Validation("code is required")
	}

	unit, err := s.store.Units().FindByID(ctx, clean)
	switch {
	case err == nil:
		logs, err := s.store.Logs().Find(ctx, repository.LogFilter{StockItemID: unit.UniqueID})
		if err != nil {
			return nil, err
		}
		return &LookupResult{Unit: unit, Logs: ledger.SortChronological(logs)}, nil
	case !apperror.IsNotFound(err):
		return nil, err
	}

	batches, err := s.Batches(ctx, clean)
	if apperror.IsNotFound(err) {
		return nil, apperror.NotFound("unit or product", clean)
	}
	if err != nil {
		return nil, err
	}
	p, err := s.store.Products().FindByID(ctx, clean)
	if err != nil {
		return nil, err
	}
	return &LookupResult{Product: p, Batches: batches}, nil
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
