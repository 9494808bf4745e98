package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
)

// Snapshot is a full read of the ledger state taken for one projection.
type Snapshot struct {
	Products []model.Product
	Units    []model.StockUnit
	Logs     []model.LogEntry
	Requests []model.OpnameRequest
}

// SnapshotParts selects which collections LoadSnapshot fetches.
type SnapshotParts struct {
	Units    bool
	Logs     bool
	Requests bool
	// LogLimit bounds the log read to the most recent entries when positive.
	LogLimit int
	// InTx reads one collection at a time: a transaction owns a single connection.
	InTx bool
}

// LoadSnapshot fetches the products and the requested collections concurrently.
func LoadSnapshot(ctx context.Context, store repository.Store, parts SnapshotParts) (*Snapshot, error) {
	snap := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	if parts.InTx {
		g.SetLimit(1)
	}

	g.Go(func() error {
		var err error
		snap.Products, err = store.Products().FindAll(gctx)
		return err
	})
	if parts.Units {
		g.Go(func() error {
			var err error
			snap.Units, err = store.Units().FindAll(gctx, repository.UnitFilter{})
			return err
		})
	}
	if parts.Logs {
		g.Go(func() error {
			var err error
			snap.Logs, err = store.Logs().Find(gctx, repository.LogFilter{Limit: parts.LogLimit})
			return err
		})
	}
	if parts.Requests {
		g.Go(func() error {
			var err error
			snap.Requests, err = store.Opname().FindAll(gctx, "")
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Snapshot) Product(id string) (*model.Product, bool) {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i], true
		}
	}
	return nil, false
}
