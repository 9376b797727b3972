package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"shopBackend/models"
)

// lineBatchSize bounds the order ids bound into one order_lines query. SQLite
// caps host parameters at 32766 and Postgres at 65535.
const lineBatchSize = 500

// ListByUserID returns all orders for a user ordered by created_at desc, id desc.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	return r.List(ctx, ListOrdersParams{UserID: &userID})
}

// ListByUserIDPage returns a page of orders for a user ordered by created_at desc, id desc.
// Uses keyset pagination with a (created_at, id) cursor taken from the last order of the previous page.
func (r *OrderRepository) ListByUserIDPage(ctx context.Context, userID int64, pageSize int, after *OrderCursor) ([]models.Order, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return r.List(ctx, ListOrdersParams{UserID: &userID, PageSize: pageSize, After: after})
}

// OrderCursor is the keyset position of an order in newest-first listings.
type OrderCursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorOf returns the cursor positioned at o.
func CursorOf(o models.Order) OrderCursor {
	return OrderCursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

// ListOrdersParams represents filters and pagination for List.
type ListOrdersParams struct {
	UserID      *int64
	CreatedFrom *time.Time // optional inclusive lower bound on created_at
	CreatedTo   *time.Time // optional inclusive upper bound on created_at
	PageSize    int        // 0 means no limit
	After       *OrderCursor
}

// List returns orders (with lines) matching filters ordered by created_at desc, id desc.
func (r *OrderRepository) List(ctx context.Context, p ListOrdersParams) ([]models.Order, error) {
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var where []string
	var args []any

	if p.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *p.UserID)
	}
	if p.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, models.FormatTimestamp(*p.CreatedFrom))
	}
	if p.CreatedTo != nil {
		where = append(where, "created_at <= ?")
		args = append(args, models.FormatTimestamp(*p.CreatedTo))
	}
	if p.After != nil && p.After.ID != "" {
		ts := models.FormatTimestamp(p.After.CreatedAt)
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, ts, ts, p.After.ID)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if p.PageSize > 0 {
		query += " LIMIT ?"
		args = append(args, p.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	out, err := r.scanOrderRows(rows)
	// Release the connection before the line query; SQLite runs on a single one.
	_ = rows.Close()
	if err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// scanOrderRows is a helper to scan header rows into Order objects.
func (r *OrderRepository) scanOrderRows(rows *sql.Rows) ([]models.Order, error) {
	out := make([]models.Order, 0)
	for rows.Next() {
		var o models.Order
		var created string
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalPrice, &created); err != nil {
			return nil, err
		}
		t, err := models.ParseTimestamp(created)
		if err != nil {
			return nil, err
		}
		o.CreatedAt = t
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// attachLines loads the lines of every order, lineBatchSize orders per query,
// and assigns them in position order.
func (r *OrderRepository) attachLines(ctx context.Context, orders []models.Order) error {
	idx := make(map[string]int, len(orders))
	for i, o := range orders {
		idx[o.ID] = i
	}
	for start := 0; start < len(orders); start += lineBatchSize {
		end := min(start+lineBatchSize, len(orders))
		if err := r.attachLineBatch(ctx, orders, idx, orders[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepository) attachLineBatch(ctx context.Context, orders []models.Order, idx map[string]int, batch []models.Order) error {
	placeholders := make([]string, len(batch))
	args := make([]any, len(batch))
	for i, o := range batch {
		placeholders[i] = "?"
		args[i] = o.ID
	}
	query := `SELECT order_id, position, item_id, item_name, quantity, unit_price FROM order_lines WHERE order_id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY order_id, position`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.OrderID, &l.Position, &l.ItemID, &l.ItemName, &l.Quantity, &l.UnitPrice); err != nil {
			return err
		}
		i := idx[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return rows.Err()
}
