package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go-stock-ledger/internal/apperror"
)

type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore returns the Postgres-backed Store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Products() ProductRepository { return &productRepo{s.db} }
func (s *gormStore) Units() UnitRepository       { return &unitRepo{s.db} }
func (s *gormStore) Logs() LogRepository         { return &logRepo{s.db} }
func (s *gormStore) Opname() OpnameRepository    { return &opnameRepo{s.db} }
func (s *gormStore) Users() UserRepository       { return &userRepo{s.db} }

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, inTx: true})
	})
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Storage("commit transaction", err)
}

// wrapErr maps GORM failures onto the error taxonomy.
func wrapErr(op, entity string, id any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity, id)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict("%s %v already exists", entity, id)
	}
	return apperror.Storage(op, err)
}
