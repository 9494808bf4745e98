// Package worker runs background jobs of the API process.
package worker

import (
	"context"
	"fmt"
	"time"

	"go-stock-ledger/internal/service"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/logger"
)

// Projector rebuilds every cached stock total and reports the ones that drifted.
type Projector interface {
	RecalculateAll(ctx context.Context) ([]service.Drift, error)
}

// Recalculator periodically re-projects stockToday from the log.
type Recalculator struct {
	projector Projector
	notifier  service.Notifier
	interval  time.Duration
	log       *logger.Logger
}

func NewRecalculator(p Projector, n service.Notifier, interval time.Duration, log *logger.Logger) *Recalculator {
	if log == nil {
		log = logger.L()
	}
	return &Recalculator{projector: p, notifier: n, interval: interval, log: log.WithComponent("recalc")}
}

// Run blocks until ctx is done. A non-positive interval disables the job.
func (r *Recalculator) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Infow("periodic recalculation disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Infow("periodic recalculation started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.log.Infow("periodic recalculation stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Recalculator) tick(ctx context.Context) {
	drifts, err := r.projector.RecalculateAll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Errorw("recalculation failed", "error", err)
		}
	}
	if len(drifts) == 0 {
		return
	}

	ids := make([]string, 0, len(drifts))
	for _, d := range drifts {
		r.log.Warnw("stock total drifted from log", "product_id", d.ProductID, "cached", d.Cached, "actual", d.Actual)
		ids = append(ids, d.ProductID)
	}
	if r.notifier != nil {
		r.notifier.Publish(ws.Event{
			Type:       ws.TypeStockUpdate,
			Action:     "recalculated",
			ProductIDs: ids,
			User:       "system",
			Message:    fmt.Sprintf("%d product totals corrected", len(ids)),
			At:         time.Now(),
		})
	}
}
