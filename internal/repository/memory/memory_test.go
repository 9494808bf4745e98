package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
)

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Products().Create(ctx, &model.Product{ID: "PMI001", Name: "Kardus"}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Products().UpdateStock(ctx, "PMI001", decimal.NewFromInt(9)))
		require.NoError(t, tx.Logs().Append(ctx, model.LogEntry{ID: "L1", ProductID: "PMI001"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := s.Products().FindByID(ctx, "PMI001")
	require.NoError(t, err)
	assert.True(t, p.StockToday.IsZero())
	logs, err := s.Logs().Find(ctx, repository.LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestNestedWithTxJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.WithTx(ctx, func(tx repository.Store) error {
		return tx.WithTx(ctx, func(inner repository.Store) error {
			return inner.Logs().Append(ctx, model.LogEntry{ID: "L1"})
		})
	})
	require.NoError(t, err)

	logs, _ := s.Logs().Find(ctx, repository.LogFilter{})
	assert.Len(t, logs, 1)
}

func TestUnitUpdateIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := &model.StockUnit{UniqueID: "U1", ProductID: "PMI001", Quantity: decimal.NewFromInt(10), Status: model.StatusInStock}
	require.NoError(t, s.Units().Create(ctx, u))

	first, _ := s.Units().FindByID(ctx, "U1")
	second, _ := s.Units().FindByID(ctx, "U1")

	first.SetQuantity(decimal.NewFromInt(6))
	require.NoError(t, s.Units().Update(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.SetQuantity(decimal.NewFromInt(3))
	err := s.Units().Update(ctx, second)
	assert.True(t, apperror.IsConflict(err))

	stored, _ := s.Units().FindByID(ctx, "U1")
	assert.True(t, decimal.NewFromInt(6).Equal(stored.Quantity))
}

func TestLogFindByProductAndLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	require.NoError(t, s.Logs().Append(ctx,
		model.LogEntry{ID: "1", ProductID: "PMI001", Timestamp: now},
		model.LogEntry{ID: "2", ProductName: " Kardus ", Timestamp: now},
		model.LogEntry{ID: "3", ProductID: "IMI002", ProductName: "Kardus", Timestamp: now},
		model.LogEntry{ID: "4", ProductID: "PMI001", Timestamp: now},
	))

	logs, err := s.Logs().Find(ctx, repository.LogFilter{ProductID: "PMI001", ProductName: "kardus"})
	require.NoError(t, err)
	ids := []string{}
	for _, l := range logs {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"1", "2", "4"}, ids)
	assert.Equal(t, int64(4), logs[2].Seq)

	recent, _ := s.Logs().Find(ctx, repository.LogFilter{Limit: 2})
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].ID)
}

func TestOpnameResolveOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Opname().Create(ctx, model.OpnameRequest{ID: "R1", Status: model.OpnamePending}))

	require.NoError(t, s.Opname().Resolve(ctx, "R1", model.OpnameApproved, "admin", time.Now()))
	err := s.Opname().Resolve(ctx, "R1", model.OpnameRejected, "admin", time.Now())
	assert.True(t, apperror.IsConflict(err))

	err = s.Opname().Resolve(ctx, "missing", model.OpnameApproved, "admin", time.Now())
	assert.True(t, apperror.IsNotFound(err))
}
