package repository

import (
	"context"
	"database/sql"

	"shopBackend/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// ItemRepositoryI defines operations on catalog Items. The Tx variants take
// part in a caller-owned transaction.
type ItemRepositoryI interface {
	Create(ctx context.Context, it *models.Item) (*models.Item, error)
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Item, error)
	List(ctx context.Context, p ListItemsParams) ([]models.Item, error)
	Update(ctx context.Context, it *models.Item) error
	Delete(ctx context.Context, id int64) error
	DecrementStock(ctx context.Context, tx *sql.Tx, id int64, qty int) (bool, error)
}

// OrderRepositoryI defines operations on Order aggregates.
type OrderRepositoryI interface {
	Insert(ctx context.Context, tx *sql.Tx, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	ListByUserIDPage(ctx context.Context, userID int64, pageSize int, after *OrderCursor) ([]models.Order, error)
	List(ctx context.Context, p ListOrdersParams) ([]models.Order, error)
}

// TxRunner runs fn in a transaction; *db.Handle implements it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

var (
	_ UserRepositoryI  = (*UserRepository)(nil)
	_ ItemRepositoryI  = (*ItemRepository)(nil)
	_ OrderRepositoryI = (*OrderRepository)(nil)
)
