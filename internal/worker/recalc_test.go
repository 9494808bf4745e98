package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stock-ledger/internal/service"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/logger"
)

type fakeProjector struct {
	calls  atomic.Int32
	drifts []service.Drift
	err    error
}

func (f *fakeProjector) RecalculateAll(context.Context) ([]service.Drift, error) {
	f.calls.Add(1)
	return f.drifts, f.err
}

type sink struct {
	mu     sync.Mutex
	events []ws.Event
}

func (s *sink) Publish(ev ws.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestRecalculatorPublishesDrift(t *testing.T) {
	p := &fakeProjector{drifts: []service.Drift{
		{ProductID: "P001", Cached: decimal.NewFromInt(9), Actual: decimal.NewFromInt(7)},
	}}
	events := &sink{}
	r := NewRecalculator(p, events, 5*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return events.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recalculator did not stop")
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, "recalculated", events.events[0].Action)
	assert.Equal(t, []string{"P001"}, events.events[0].ProductIDs)
}

func TestRecalculatorQuietWithoutDrift(t *testing.T) {
	p := &fakeProjector{err: errors.New("db down")}
	events := &sink{}
	r := NewRecalculator(p, events, time.Hour, logger.Nop())

	r.tick(context.Background())
	assert.EqualValues(t, 1, p.calls.Load())
	assert.Zero(t, events.count())
}

func TestRecalculatorDisabled(t *testing.T) {
	p := &fakeProjector{}
	r := NewRecalculator(p, nil, 0, logger.Nop())

	r.Run(context.Background())
	assert.Zero(t, p.calls.Load())
}
