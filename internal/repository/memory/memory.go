// Package memory is an in-process repository.Store. Transactions are serialized
// and roll back by restoring a snapshot taken when they start.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
)

type state struct {
	products map[string]model.Product
	units    map[string]model.StockUnit
	logs     []model.LogEntry
	requests map[string]model.OpnameRequest
	users    map[string]model.User
	seq      int64
}

func (s *state) clone() *state {
	return &state{
		products: maps.Clone(s.products),
		units:    maps.Clone(s.units),
		logs:     slices.Clone(s.logs),
		requests: maps.Clone(s.requests),
		users:    maps.Clone(s.users),
		seq:      s.seq,
	}
}

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		products: make(map[string]model.Product),
		units:    make(map[string]model.StockUnit),
		requests: make(map[string]model.OpnameRequest),
		users:    make(map[string]model.User),
	}}
}

func (s *Store) Products() repository.ProductRepository { return productRepo{s} }
func (s *Store) Units() repository.UnitRepository       { return unitRepo{s} }
func (s *Store) Logs() repository.LogRepository         { return logRepo{s} }
func (s *Store) Opname() repository.OpnameRepository    { return opnameRepo{s} }
func (s *Store) Users() repository.UserRepository       { return userRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(txStore{s}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// txStore is the view handed to a transaction body; nested WithTx joins it.
type txStore struct {
	*Store
}

func (t txStore) WithTx(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(t)
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type productRepo struct{ s *Store }

func (r productRepo) FindAll(_ context.Context) ([]model.Product, error) {
	var out []model.Product
	r.s.read(func(st *state) {
		out = slices.Collect(maps.Values(st.products))
	})
	slices.SortFunc(out, func(a, b model.Product) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r productRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	var (
		p  model.Product
		ok bool
	)
	r.s.read(func(st *state) { p, ok = st.products[id] })
	if !ok {
		return nil, apperror.NotFound("product", id)
	}
	return &p, nil
}

func (r productRepo) FindForUpdate(ctx context.Context, id string) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r productRepo) IDs(_ context.Context, prefix string) ([]string, error) {
	var ids []string
	r.s.read(func(st *state) {
		for id := range st.products {
			if strings.HasPrefix(id, prefix) {
				ids = append(ids, id)
			}
		}
	})
	slices.Sort(ids)
	return ids, nil
}

func (r productRepo) Create(_ context.Context, p *model.Product) error {
	return r.s.write(func(st *state) error {
		if _, exists := st.products[p.ID]; exists {
			return apperror.Conflict("product %s already exists", p.ID)
		}
		now := time.Now()
		p.CreatedAt, p.UpdatedAt = now, now
		st.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) UpdateMaster(_ context.Context, p *model.Product) error {
	return r.update(p.ID, func(cur *model.Product) {
		cur.Name = p.Name
		cur.Category = p.Category
		cur.Unit = p.Unit
		cur.SafetyStock = p.SafetyStock
		cur.UpdatedBy = p.UpdatedBy
	})
}

func (r productRepo) UpdateStock(_ context.Context, id string, stockToday decimal.Decimal) error {
	return r.update(id, func(cur *model.Product) { cur.StockToday = stockToday })
}

func (r productRepo) UpdateBaseline(_ context.Context, id string, initial decimal.Decimal) error {
	return r.update(id, func(cur *model.Product) { cur.InitialStock = initial })
}

func (r productRepo) update(id string, fn func(cur *model.Product)) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.products[id]
		if !ok {
			return apperror.NotFound("product", id)
		}
		fn(&cur)
		cur.UpdatedAt = time.Now()
		st.products[id] = cur
		return nil
	})
}

func (r productRepo) Delete(_ context.Context, id string) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return apperror.NotFound("product", id)
		}
		delete(st.products, id)
		return nil
	})
}

type unitRepo struct{ s *Store }

func (r unitRepo) FindAll(_ context.Context, f repository.UnitFilter) ([]model.StockUnit, error) {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	var out []model.StockUnit
	r.s.read(func(st *state) {
		for _, u := range st.units {
			if f.ProductID != "" && u.ProductID != f.ProductID {
				continue
			}
			if f.Status != "" && u.Status != f.Status {
				continue
			}
			if needle != "" &&
				!strings.Contains(strings.ToLower(u.UniqueID), needle) &&
				!strings.Contains(strings.ToLower(u.ProductName), needle) &&
				!strings.Contains(strings.ToLower(u.BatchCode), needle) {
				continue
			}
			out = append(out, u)
		}
	})
	slices.SortFunc(out, func(a, b model.StockUnit) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.UniqueID, b.UniqueID)
	})
	return out, nil
}

func (r unitRepo) FindByID(_ context.Context, id string) (*model.StockUnit, error) {
	var (
		u  model.StockUnit
		ok bool
	)
	r.s.read(func(st *state) { u, ok = st.units[id] })
	if !ok {
		return nil, apperror.NotFound("stock unit", id)
	}
	return &u, nil
}

func (r unitRepo) Create(_ context.Context, u *model.StockUnit) error {
	return r.s.write(func(st *state) error {
		if _, exists := st.units[u.UniqueID]; exists {
			return apperror.Conflict("stock unit %s already exists", u.UniqueID)
		}
		now := time.Now()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
		st.units[u.UniqueID] = *u
		return nil
	})
}

func (r unitRepo) Update(_ context.Context, u *model.StockUnit) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.units[u.UniqueID]
		if !ok {
			return apperror.NotFound("stock unit", u.UniqueID)
		}
		if cur.Version != u.Version {
			return apperror.Conflict("stock unit %s was modified concurrently", u.UniqueID).
				WithDetail("id", u.UniqueID)
		}
		cur.Quantity = u.Quantity
		cur.Status = u.Status
		cur.Note = u.Note
		cur.Version++
		cur.UpdatedAt = time.Now()
		st.units[u.UniqueID] = cur
		u.Version = cur.Version
		return nil
	})
}

type logRepo struct{ s *Store }

func (r logRepo) Append(_ context.Context, entries ...model.LogEntry) error {
	return r.s.write(func(st *state) error {
		for _, e := range entries {
			st.seq++
			e.Seq = st.seq
			st.logs = append(st.logs, e)
		}
		return nil
	})
}

func (r logRepo) Find(_ context.Context, f repository.LogFilter) ([]model.LogEntry, error) {
	name := strings.ToLower(strings.TrimSpace(f.ProductName))
	var out []model.LogEntry
	r.s.read(func(st *state) {
		for _, e := range st.logs {
			if f.ProductID != "" && e.ProductID != f.ProductID &&
				(e.ProductID != "" || strings.ToLower(strings.TrimSpace(e.ProductName)) != name) {
				continue
			}
			if f.StockItemID != "" && e.StockItemID != f.StockItemID {
				continue
			}
			if f.From != nil && e.Timestamp.Before(*f.From) {
				continue
			}
			if f.To != nil && e.Timestamp.After(*f.To) {
				continue
			}
			out = append(out, e)
		}
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

type opnameRepo struct{ s *Store }

func (r opnameRepo) Create(_ context.Context, reqs ...model.OpnameRequest) error {
	return r.s.write(func(st *state) error {
		for _, req := range reqs {
			if _, exists := st.requests[req.ID]; exists {
				return apperror.Conflict("opname request %s already exists", req.ID)
			}
			st.requests[req.ID] = req
		}
		return nil
	})
}

func (r opnameRepo) FindByID(_ context.Context, id string) (*model.OpnameRequest, error) {
	var (
		req model.OpnameRequest
		ok  bool
	)
	r.s.read(func(st *state) { req, ok = st.requests[id] })
	if !ok {
		return nil, apperror.NotFound("opname request", id)
	}
	return &req, nil
}

func (r opnameRepo) FindAll(_ context.Context, status model.OpnameStatus) ([]model.OpnameRequest, error) {
	var out []model.OpnameRequest
	r.s.read(func(st *state) {
		for _, req := range st.requests {
			if status == "" || req.Status == status {
				out = append(out, req)
			}
		}
	})
	slices.SortFunc(out, func(a, b model.OpnameRequest) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r opnameRepo) Resolve(_ context.Context, id string, status model.OpnameStatus, by string, at time.Time) error {
	return r.s.write(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return apperror.NotFound("opname request", id)
		}
		if req.Status != model.OpnamePending {
			return apperror.Conflict("opname request %s is already %s", id, req.Status)
		}
		req.Status = status
		req.ResolvedBy = by
		req.ResolvedAt = &at
		st.requests[id] = req
		return nil
	})
}

type userRepo struct{ s *Store }

func (r userRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.s.read(func(st *state) { u, ok = st.users[username] })
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	return &u, nil
}

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.s.read(func(st *state) {
		for _, cand := range st.users {
			if cand.ID == id {
				u, ok = cand, true
				return
			}
		}
	})
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (r userRepo) Create(_ context.Context, u *model.User) error {
	return r.s.write(func(st *state) error {
		if _, exists := st.users[u.Username]; exists {
			return apperror.Conflict("user %s already exists", u.Username)
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		now := time.Now()
		u.CreatedAt, u.UpdatedAt = now, now
		st.users[u.Username] = *u
		return nil
	})
}

func (r userRepo) FindAll(_ context.Context) ([]model.User, error) {
	var out []model.User
	r.s.read(func(st *state) {
		out = slices.Collect(maps.Values(st.users))
	})
	slices.SortFunc(out, func(a, b model.User) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}

func (r userRepo) Update(_ context.Context, user *model.User) error {
	return r.s.write(func(st *state) error {
		for name, u := range st.users {
			if u.ID == user.ID {
				u.Role = user.Role
				u.IsActive = user.IsActive
				u.UpdatedAt = time.Now()
				st.users[name] = u
				return nil
			}
		}
		return apperror.NotFound("user", user.ID)
	})
}

func (r userRepo) UpdatePassword(_ context.Context, userID uuid.UUID, hashed string) error {
	return r.s.write(func(st *state) error {
		for name, u := range st.users {
			if u.ID == userID {
				u.Password = hashed
				u.UpdatedAt = time.Now()
				st.users[name] = u
				return nil
			}
		}
		return apperror.NotFound("user", userID)
	})
}

func (r userRepo) Count(_ context.Context) (int64, error) {
	var n int
	r.s.read(func(st *state) { n = len(st.users) })
	return int64(n), nil
}
