package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"shopBackend/internal/db"
	"shopBackend/models"
)

const itemColumns = `id, name, quantity, price`

type ItemRepository struct {
	db *db.Handle
}

func NewItemRepository(h *db.Handle) *ItemRepository {
	return &ItemRepository{db: h}
}

func (r *ItemRepository) conn(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a new item and returns it with its generated ID.
func (r *ItemRepository) Create(ctx context.Context, it *models.Item) (*models.Item, error) {
	if it == nil {
		return nil, errors.New("item is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`INSERT INTO items (name, quantity, price) VALUES (?,?,?) RETURNING id`),
		it.Name, it.Quantity, it.Price).Scan(&id)
	if err != nil {
		return nil, err
	}
	out := *it
	out.ID = id
	return &out, nil
}

// GetByID returns nil, nil when the item does not exist.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	return r.GetByIDTx(ctx, nil, id)
}

// GetByIDTx reads an item through tx (or the pool when tx is nil).
func (r *ItemRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var it models.Item
	err := r.conn(tx).QueryRowContext(ctx, r.db.Rebind(`SELECT `+itemColumns+` FROM items WHERE id = ?`), id).
		Scan(&it.ID, &it.Name, &it.Quantity, &it.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

// ListItemsParams contains optional filters and keyset pagination for item listings.
type ListItemsParams struct {
	NameContains *string
	InStockOnly  bool
	PageSize     int // 0 means no limit
	AfterID      int64
}

// List returns items matching filters ordered by id asc with keyset pagination by id.
// The zero ListItemsParams lists the whole catalog.
func (r *ItemRepository) List(ctx context.Context, p ListItemsParams) ([]models.Item, error) {
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	where := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if p.NameContains != nil && strings.TrimSpace(*p.NameContains) != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+strings.TrimSpace(*p.NameContains)+"%")
	}
	if p.InStockOnly {
		where = append(where, "quantity > 0")
	}
	if p.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, p.AfterID)
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if p.PageSize > 0 {
		query += " LIMIT ?"
		args = append(args, p.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Item, 0)
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites name, quantity and price. Returns ErrNotFound if the id is absent.
func (r *ItemRepository) Update(ctx context.Context, it *models.Item) error {
	if it == nil {
		return errors.New("item is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE items SET name = ?, quantity = ?, price = ? WHERE id = ?`),
		it.Name, it.Quantity, it.Price, it.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an item. Returns ErrNotFound if the id is absent.
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock subtracts qty from the item's quantity only if enough stock
// remains. It reports false when the row is missing or the stock is short;
// the conditional update makes concurrent decrements on the same row safe.
func (r *ItemRepository) DecrementStock(ctx context.Context, tx *sql.Tx, id int64, qty int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.conn(tx).ExecContext(ctx, r.db.Rebind(`UPDATE items SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`), qty, id, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
