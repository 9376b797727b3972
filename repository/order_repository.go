package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopBackend/internal/db"
	"shopBackend/models"
)

const orderColumns = `id, user_id, total_price, created_at`

// OrderRepository persists order aggregates: one orders row plus its
// order_lines rows, always written together.
type OrderRepository struct {
	db *db.Handle
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(h *db.Handle) *OrderRepository {
	return &OrderRepository{db: h}
}

func (r *OrderRepository) conn(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.db
}

// Insert writes the order header and all of its lines through tx. The caller
// owns the transaction; nothing is visible until it commits.
func (r *OrderRepository) Insert(ctx context.Context, tx *sql.Tx, o *models.Order) error {
	if o == nil {
		return errors.New("order is nil")
	}
	if o.ID == "" {
		return errors.New("order id is required")
	}
	if len(o.Lines) == 0 {
		return errors.New("order has no lines")
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	q := r.conn(tx)
	_, err := q.ExecContext(ctx, r.db.Rebind(`INSERT INTO orders (id, user_id, total_price, created_at) VALUES (?,?,?,?)`),
		o.ID, o.UserID, o.TotalPrice, models.FormatTimestamp(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	insertLine := r.db.Rebind(`INSERT INTO order_lines (order_id, position, item_id, item_name, quantity, unit_price) VALUES (?,?,?,?,?,?)`)
	for i := range o.Lines {
		l := &o.Lines[i]
		l.OrderID = o.ID
		l.Position = i + 1
		if _, err := q.ExecContext(ctx, insertLine, l.OrderID, l.Position, l.ItemID, l.ItemName, l.Quantity, l.UnitPrice); err != nil {
			return fmt.Errorf("insert order line %d: %w", l.Position, err)
		}
	}
	return nil
}

// GetByID fetches an order with its lines. Returns nil, nil when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), id)
	if err != nil {
		return nil, err
	}
	list, err := r.scanOrderRows(rows)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	if err := r.attachLines(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}
