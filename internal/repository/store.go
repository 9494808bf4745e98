package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/model"
)

// Store is the storage collaborator of the ledger. Every business operation runs
// its reads and writes through one WithTx scope so unit updates, log appends and
// baseline rewrites commit together or not at all.
type Store interface {
	Products() ProductRepository
	Units() UnitRepository
	Logs() LogRepository
	Opname() OpnameRepository
	Users() UserRepository

	// WithTx runs fn against a transactional view of the store. A nested call
	// joins the outer transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type ProductRepository interface {
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (*model.Product, error)
	// FindForUpdate reads the product and holds its row until the transaction ends.
	FindForUpdate(ctx context.Context, id string) (*model.Product, error)
	IDs(ctx context.Context, prefix string) ([]string, error)
	Create(ctx context.Context, product *model.Product) error
	// UpdateMaster writes name, category, unit and safety stock only.
	UpdateMaster(ctx context.Context, product *model.Product) error
	UpdateStock(ctx context.Context, id string, stockToday decimal.Decimal) error
	UpdateBaseline(ctx context.Context, id string, initialStock decimal.Decimal) error
	Delete(ctx context.Context, id string) error
}

// UnitFilter narrows unit listings. Zero values match everything.
type UnitFilter struct {
	ProductID string
	Status    model.UnitStatus
	Search    string
}

type UnitRepository interface {
	FindAll(ctx context.Context, filter UnitFilter) ([]model.StockUnit, error)
	FindByID(ctx context.Context, uniqueID string) (*model.StockUnit, error)
	Create(ctx context.Context, unit *model.StockUnit) error
	// Update writes quantity, status and note when the stored version still equals
	// unit.Version, then bumps it. A stale version yields a Conflict error.
	Update(ctx context.Context, unit *model.StockUnit) error
}

// LogFilter narrows log reads. Zero values match everything.
type LogFilter struct {
	// ProductID matches entries carrying the id, and legacy entries without one
	// whose normalized product name equals ProductName.
	ProductID   string
	ProductName string
	StockItemID string
	From        *time.Time
	To          *time.Time
	// Limit keeps only the most recent entries when positive.
	Limit int
}

// LogRepository is append-only: there is no update or delete.
type LogRepository interface {
	Append(ctx context.Context, entries ...model.LogEntry) error
	// Find returns matching entries in insertion order.
	Find(ctx context.Context, filter LogFilter) ([]model.LogEntry, error)
}

type OpnameRepository interface {
	Create(ctx context.Context, reqs ...model.OpnameRequest) error
	FindByID(ctx context.Context, id string) (*model.OpnameRequest, error)
	// FindAll lists requests newest first; an empty status matches all.
	FindAll(ctx context.Context, status model.OpnameStatus) ([]model.OpnameRequest, error)
	// Resolve moves a PENDING request to status. Any other current status is a Conflict.
	Resolve(ctx context.Context, id string, status model.OpnameStatus, by string, at time.Time) error
}

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	FindAll(ctx context.Context) ([]model.User, error)
	// Update writes role and active flag.
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
	Count(ctx context.Context) (int64, error)
}
