package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/cache"
	"go-stock-ledger/internal/ledger"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
)

const (
	opnameBatchCode = "ADJUSTMENT-SYSTEM"
	opnameSupplier  = "SYSTEM ADJ"
)

type OpnameService interface {
	Groups(ctx context.Context, search string) ([]ledger.BatchGroup, error)

	Session(ctx context.Context, sessionID string, actor Actor) (*SessionView, error)
	UpdateLine(ctx context.Context, sessionID, key string, upd LineUpdate, actor Actor) (*SessionView, error)
	Scan(ctx context.Context, sessionID, codes string, actor Actor) (*ScanResult, error)
	ResetLine(ctx context.Context, sessionID, key string, actor Actor) (*SessionView, error)
	Discard(ctx context.Context, sessionID string, actor Actor) error
	Commit(ctx context.Context, sessionID string, actor Actor) (*CommitResult, error)

	Approve(ctx context.Context, requestID string, actor Actor) (*model.OpnameRequest, error)
	Reject(ctx context.Context, requestID string, actor Actor) (*model.OpnameRequest, error)
	Requests(ctx context.Context, status model.OpnameStatus) ([]model.OpnameRequest, error)
}

// LineUpdate edits one pending line. Nil fields stay as they are.
type LineUpdate struct {
	NewTotalQty *decimal.Decimal `json:"new_total_qty"`
	Note        *string          `json:"note"`
	IsInitial   *bool            `json:"is_initial"`
	RefDate     *string          `json:"ref_date"`
}

type SessionView struct {
	ID             string               `json:"id"`
	DefaultRefDate string               `json:"default_ref_date"`
	Pending        int                  `json:"pending"`
	Lines          []ledger.SummaryLine `json:"lines"`
}

type ScanResult struct {
	Session SessionView `json:"session"`
	Unknown []string    `json:"unknown,omitempty"`
}

// CommitResult reports what a commit did: direct adjustments for an admin,
// pending requests for anyone else.
type CommitResult struct {
	Applied  []ledger.SummaryLine  `json:"applied,omitempty"`
	Requests []model.OpnameRequest `json:"requests,omitempty"`
}

type opnameService struct {
	base
	sessions cache.SessionStore
}

func NewOpnameService(d Deps, sessions cache.SessionStore) OpnameService {
	return &opnameService{base: newBase(d, "opname"), sessions: sessions}
}

func (s *opnameService) Groups(ctx context.Context, search string) ([]ledger.BatchGroup, error) {
	groups, err := s.groups(ctx, s.store, false)
	if err != nil {
		return nil, err
	}
	return ledger.FilterGroups(groups, search), nil
}

func (s *opnameService) groups(ctx context.Context, store repository.Store, inTx bool) ([]ledger.BatchGroup, error) {
	snap, err := LoadSnapshot(ctx, store, SnapshotParts{Units: true, InTx: inTx})
	if err != nil {
		return nil, err
	}
	return ledger.GroupUnits(snap.Products, snap.Units), nil
}

// defaultRefDate is the first day of the current month.
func (s *opnameService) defaultRefDate() string {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).Format(time.DateOnly)
}

// sessionKey scopes session ids per user so two operators never share a count.
func sessionKey(sessionID string, actor Actor) string {
	return actor.Username + ":" + sessionID
}

func (s *opnameService) load(ctx context.Context, sessionID string, actor Actor) (*ledger.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperror.Validation("session id is required")
	}
	sess, err := s.sessions.Load(ctx, sessionKey(sessionID, actor))
	if err != nil {
		return nil, apperror.Storage("load opname session", err)
	}
	if sess.DefaultRefDate == "" {
		sess.DefaultRefDate = s.defaultRefDate()
	}
	return sess, nil
}

func (s *opnameService) save(ctx context.Context, sess *ledger.Session) error {
	if err := s.sessions.Save(ctx, sess); err != nil {
		return apperror.Storage("save opname session", err)
	}
	return nil
}

func view(sessionID string, sess *ledger.Session, groups []ledger.BatchGroup) *SessionView {
	lines := sess.Summary(groups)
	if lines == nil {
		lines = []ledger.SummaryLine{}
	}
	return &SessionView{ID: sessionID, DefaultRefDate: sess.DefaultRefDate, Pending: len(lines), Lines: lines}
}

func (s *opnameService) Session(ctx context.Context, sessionID string, actor Actor) (*SessionView, error) {
	sess, err := s.load(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups(ctx, s.store, false)
	if err != nil {
		return nil, err
	}
	return view(sessionID, sess, groups), nil
}

func (s *opnameService) UpdateLine(ctx context.Context, sessionID, key string, upd LineUpdate, actor Actor) (*SessionView, error) {
	sess, err := s.load(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups(ctx, s.store, false)
	if err != nil {
		return nil, err
	}
	g, ok := ledger.FindGroup(groups, key)
	if !ok {
		return nil, apperror.NotFound("opname group", key)
	}

	if upd.NewTotalQty != nil {
		if upd.NewTotalQty.IsNegative() {
			return nil, apperror.Validation("physical count must not be negative")
		}
		sess.SetCount(g, *upd.NewTotalQty)
	}
	if upd.Note != nil {
		sess.SetNote(g, strings.TrimSpace(*upd.Note))
	}
	if upd.IsInitial != nil {
		sess.SetInitial(g, *upd.IsInitial)
	}
	if upd.RefDate != nil {
		if _, err := s.parseDate("ref_date", *upd.RefDate); err != nil {
			return nil, err
		}
		sess.SetReferenceDate(g, *upd.RefDate)
	}

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return view(sessionID, sess, groups), nil
}

func (s *opnameService) Scan(ctx context.Context, sessionID, codes string, actor Actor) (*ScanResult, error) {
	parsed := ledger.SplitCodes(codes)
	if len(parsed) == 0 {
		return nil, apperror.Validation("no code to scan")
	}
	sess, err := s.load(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups(ctx, s.store, false)
	if err != nil {
		return nil, err
	}

	unknown := sess.Scan(groups, parsed)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return &ScanResult{Session: *view(sessionID, sess, groups), Unknown: unknown}, nil
}

func (s *opnameService) ResetLine(ctx context.Context, sessionID, key string, actor Actor) (*SessionView, error) {
	sess, err := s.load(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}
	sess.Reset(key)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	groups, err := s.groups(ctx, s.store, false)
	if err != nil {
		return nil, err
	}
	return view(sessionID, sess, groups), nil
}

func (s *opnameService) Discard(ctx context.Context, sessionID string, actor Actor) error {
	if err := s.sessions.Delete(ctx, sessionKey(sessionID, actor)); err != nil {
		return apperror.Storage("discard opname session", err)
	}
	return nil
}

func (s *opnameService) Commit(ctx context.Context, sessionID string, actor Actor) (*CommitResult, error) {
	sess, err := s.load(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &CommitResult{}
	var touched []string
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		groups, err := s.groups(ctx, tx, true)
		if err != nil {
			return err
		}
		lines := sess.Summary(groups)
		if len(lines) == 0 {
			return apperror.Validation("the session has no adjustment to commit")
		}

		if !actor.IsAdmin() {
			// Non-admin: hanya membuat pengajuan, stok tidak berubah.
			reqs := make([]model.OpnameRequest, 0, len(lines))
			for _, l := range lines {
				reqs = append(reqs, model.OpnameRequest{
					ID:                       model.NewID("OPR", now),
					ProductID:                l.ProductID,
					ProductName:              l.ProductName,
					BatchCode:                l.BatchCode,
					SystemQty:                l.System,
					PhysicalQty:              l.Physical,
					Variance:                 l.Variance,
					Note:                     l.Note,
					IsInitialStockAdjustment: l.IsInitial,
					ReferenceDate:            l.RefDate,
					SubmittedBy:              actor.Username,
					SubmittedAt:              now,
					Status:                   model.OpnamePending,
				})
			}
			result.Requests = reqs
			return tx.Opname().Create(ctx, reqs...)
		}

		// Baselines are rewritten before any direct line is booked, so an adjustment
		// stamped now never falls into the sum a back-dated line subtracts.
		products := make(map[string]struct{})
		for _, initialPass := range []bool{true, false} {
			for _, l := range lines {
				if l.IsInitial != initialPass {
					continue
				}
				g, _ := ledger.FindGroup(groups, l.Key)
				if err := s.applyDirect(ctx, tx, g, l.Physical, l.Note, l.IsInitial, l.RefDate, now, actor); err != nil {
					return err
				}
				products[g.ProductID] = struct{}{}
			}
		}
		result.Applied = lines
		touched, err = recalculateAll(ctx, tx, products)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, sessionKey(sessionID, actor)); err != nil {
		s.log.Warnw("opname session not cleared", "session_id", sessionID, "error", err)
	}
	if actor.IsAdmin() {
		s.log.Infow("opname committed", "lines", len(result.Applied), "product_ids", touched, "user", actor.Username)
		s.publish("opname", actor, touched, "%s committed a stock opname of %d lines", actor.Username, len(result.Applied))
	} else {
		s.log.Infow("opname submitted for approval", "requests", len(result.Requests), "user", actor.Username)
		s.publish("opname_requested", actor, nil, "%s submitted %d opname requests", actor.Username, len(result.Requests))
	}
	return result, nil
}

// applyDirect reconciles one group against a physical count. A back-dated line
// rewrites the product baseline so that the balance from refDate onward lands on
// the count; any other line adjusts the group's units, or a synthesized unit when
// the group has none.
func (s *opnameService) applyDirect(ctx context.Context, tx repository.Store, g *ledger.BatchGroup, physical decimal.Decimal, note string, isInitial bool, refDate string, now time.Time, actor Actor) error {
	if isInitial {
		if refDate == "" {
			refDate = s.defaultRefDate()
		}
		from, err := s.parseDate("ref_date", refDate)
		if err != nil {
			return err
		}
		p, err := tx.Products().FindForUpdate(ctx, g.ProductID)
		if err != nil {
			return err
		}
		since, err := tx.Logs().Find(ctx, repository.LogFilter{ProductID: p.ID, ProductName: p.Name, From: &from})
		if err != nil {
			return err
		}
		return tx.Products().UpdateBaseline(ctx, p.ID, physical.Sub(ledger.Sum(since)))
	}

	variance := physical.Sub(g.TotalSystemQty)
	if g.IsGlobal() {
		if note == "" {
			note = "Audit Global"
		}
		unit := model.StockUnit{
			UniqueID:    "OPN-" + g.ProductID + "-" + model.RandomSuffix(4),
			ProductID:   g.ProductID,
			ProductName: g.ProductName,
			BatchCode:   opnameBatchCode,
			ArrivalDate: now.In(s.loc).Format(time.DateOnly),
			Supplier:    opnameSupplier,
			CreatedAt:   now,
		}
		unit.SetQuantity(physical)
		if err := tx.Units().Create(ctx, &unit); err != nil {
			return err
		}
		if variance.IsZero() {
			return nil
		}
		return tx.Logs().Append(ctx, newLog(model.LogAdjust, &unit, variance, now, note, actor))
	}

	if note == "" {
		note = "Audit " + g.BatchCode
	}
	plan, err := spreadVariance(g.Units, variance)
	if err != nil {
		return err
	}
	for _, step := range plan {
		if _, err := adjustUnit(ctx, tx, step.unit, step.newQty, note, now, actor); err != nil {
			return err
		}
	}
	return nil
}

// Approve applies a pending request against the group it was filed for. If
// that group no longer exists because the product's batches changed, the
// request is left PENDING and Conflict is returned.
func (s *opnameService) Approve(ctx context.Context, requestID string, actor Actor) (*model.OpnameRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only an admin can approve opname requests")
	}

	now := s.now()
	var req *model.OpnameRequest
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		req, err = tx.Opname().FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.OpnamePending {
			return apperror.Conflict("opname request %s is already %s", req.ID, req.Status)
		}

		groups, err := s.groups(ctx, tx, true)
		if err != nil {
			return err
		}
		g, changed := ledger.FindGroupFor(groups, req.ProductID, req.BatchCode)
		if changed {
			return apperror.Conflict("the batches of %s changed since request %s was filed; count again", req.ProductID, req.ID)
		}
		if g == nil {
			return apperror.NotFound("opname group", ledger.GroupKey(req.ProductID, req.BatchCode))
		}
		if err := s.applyDirect(ctx, tx, g, req.PhysicalQty, req.Note, req.IsInitialStockAdjustment, req.ReferenceDate, now, actor); err != nil {
			return err
		}
		if _, _, err := recalculate(ctx, tx, g.ProductID); err != nil {
			return err
		}
		if err := tx.Opname().Resolve(ctx, req.ID, model.OpnameApproved, actor.Username, now); err != nil {
			return err
		}
		req.Status = model.OpnameApproved
		req.ResolvedBy = actor.Username
		req.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("opname request approved", "request_id", req.ID, "product_id", req.ProductID, "user", actor.Username)
	s.publish("opname_approved", actor, []string{req.ProductID}, "%s approved the opname of %s", actor.Username, req.ProductName)
	return req, nil
}

func (s *opnameService) Reject(ctx context.Context, requestID string, actor Actor) (*model.OpnameRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only an admin can reject opname requests")
	}

	now := s.now()
	var req *model.OpnameRequest
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Opname().Resolve(ctx, requestID, model.OpnameRejected, actor.Username, now); err != nil {
			return err
		}
		var err error
		req, err = tx.Opname().FindByID(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("opname request rejected", "request_id", req.ID, "user", actor.Username)
	s.publish("opname_rejected", actor, []string{req.ProductID}, "%s rejected the opname of %s", actor.Username, req.ProductName)
	return req, nil
}

func (s *opnameService) Requests(ctx context.Context, status model.OpnameStatus) ([]model.OpnameRequest, error) {
	return s.store.Opname().FindAll(ctx, status)
}
