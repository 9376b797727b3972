package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopBackend/internal/db"
	"shopBackend/models"
)

type orderFixture struct {
	db     *db.Handle
	users  *UserRepository
	items  *ItemRepository
	orders *OrderRepository
}

func newOrderFixture(t *testing.T, name string) *orderFixture {
	t.Helper()
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return &orderFixture{db: d, users: NewUserRepository(d), items: NewItemRepository(d), orders: NewOrderRepository(d)}
}

func newOrder(userID int64, at time.Time, lines ...models.OrderLine) *models.Order {
	o := &models.Order{ID: uuid.NewString(), UserID: userID, Lines: lines, CreatedAt: at}
	o.TotalPrice = o.SumLines()
	return o
}

func (f *orderFixture) create(t *testing.T, o *models.Order) {
	t.Helper()
	err := f.db.WithTx(context.Background(), func(tx *sql.Tx) error {
		return f.orders.Insert(context.Background(), tx, o)
	})
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}
}

func line(itemID int64, name string, qty int, price string) models.OrderLine {
	return models.OrderLine{ItemID: itemID, ItemName: name, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	f := newOrderFixture(t, "ordercreate")
	ctx := context.Background()

	u, err := f.users.Create(ctx, "alice", "h", models.RoleCustomer)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	at := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	o := newOrder(u.ID, at, line(1, "pen", 2, "1.25"), line(2, "ink", 1, "3.10"))
	f.create(t, o)

	got, err := f.orders.GetByID(ctx, o.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v %+v", err, got)
	}
	if got.UserID != u.ID || !got.CreatedAt.Equal(at) {
		t.Fatalf("header mismatch: %+v", got)
	}
	if !got.TotalPrice.Equal(decimal.RequireFromString("5.60")) {
		t.Fatalf("total mismatch: %s", got.TotalPrice)
	}
	if len(got.Lines) != 2 || got.Lines[0].ItemName != "pen" || got.Lines[1].Position != 2 || got.Lines[1].OrderID != o.ID {
		t.Fatalf("lines mismatch: %+v", got.Lines)
	}

	if none, err := f.orders.GetByID(ctx, uuid.NewString()); err != nil || none != nil {
		t.Fatalf("expected nil, nil for unknown order, got %+v %v", none, err)
	}
}

func TestOrderRepository_InsertIsAllOrNothing(t *testing.T) {
	f := newOrderFixture(t, "orderatomic")
	ctx := context.Background()

	u, _ := f.users.Create(ctx, "bob", "h", models.RoleCustomer)
	o := newOrder(u.ID, time.Now(), line(1, "pen", 1, "1"), line(2, "bad", 0, "1")) // quantity 0 violates CHECK

	err := f.db.WithTx(ctx, func(tx *sql.Tx) error {
		return f.orders.Insert(ctx, tx, o)
	})
	if err == nil {
		t.Fatalf("expected constraint failure on second line")
	}
	if got, _ := f.orders.GetByID(ctx, o.ID); got != nil {
		t.Fatalf("no order header may survive a failed aggregate write: %+v", got)
	}
	if list, _ := f.orders.ListByUserID(ctx, u.ID); len(list) != 0 {
		t.Fatalf("expected 0 orders, got %d", len(list))
	}
}

func TestOrderRepository_InsertValidates(t *testing.T) {
	f := newOrderFixture(t, "ordervalidate")
	ctx := context.Background()
	if err := f.orders.Insert(ctx, nil, nil); err == nil {
		t.Fatalf("expected error for nil order")
	}
	if err := f.orders.Insert(ctx, nil, &models.Order{ID: "x"}); err == nil {
		t.Fatalf("expected error for order without lines")
	}
	if err := f.orders.Insert(ctx, nil, &models.Order{Lines: []models.OrderLine{line(1, "a", 1, "1")}}); err == nil {
		t.Fatalf("expected error for order without id")
	}
}

func TestOrderRepository_ListByUserIsScopedAndNewestFirst(t *testing.T) {
	f := newOrderFixture(t, "orderlist")
	ctx := context.Background()

	alice, _ := f.users.Create(ctx, "alice", "h", models.RoleCustomer)
	bob, _ := f.users.Create(ctx, "bob", "h", models.RoleCustomer)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var aliceIDs []string
	for i := 0; i < 3; i++ {
		o := newOrder(alice.ID, base.Add(time.Duration(i)*time.Minute), line(1, "pen", i+1, "1"))
		f.create(t, o)
		aliceIDs = append(aliceIDs, o.ID)
	}
	f.create(t, newOrder(bob.ID, base.Add(time.Hour), line(1, "pen", 1, "1")))

	list, err := f.orders.ListByUserID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list alice: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 alice orders, got %d", len(list))
	}
	for i, o := range list {
		if o.UserID != alice.ID {
			t.Fatalf("foreign order leaked into alice's list: %+v", o)
		}
		if want := aliceIDs[2-i]; o.ID != want {
			t.Fatalf("position %d: got %s want %s (newest first)", i, o.ID, want)
		}
		if len(o.Lines) != 1 || o.Lines[0].Quantity != 3-i {
			t.Fatalf("lines not attached correctly: %+v", o.Lines)
		}
	}

	all, err := f.orders.List(ctx, ListOrdersParams{})
	if err != nil || len(all) != 4 || all[0].UserID != bob.ID {
		t.Fatalf("list all: %v len=%d", err, len(all))
	}
}

func TestOrderRepository_ListByUserIDPage(t *testing.T) {
	f := newOrderFixture(t, "orderpage")
	ctx := context.Background()

	u, _ := f.users.Create(ctx, "carol", "h", models.RoleCustomer)
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	// Two orders share a timestamp so the id tie-breaker is exercised.
	stamps := []time.Time{at, at, at.Add(time.Second), at.Add(2 * time.Second), at.Add(3 * time.Second)}
	for _, ts := range stamps {
		f.create(t, newOrder(u.ID, ts, line(7, "cup", 1, "2")))
	}

	seen := map[string]bool{}
	var after *OrderCursor
	pages := 0
	for {
		page, err := f.orders.ListByUserIDPage(ctx, u.ID, 2, after)
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		for _, o := range page {
			if seen[o.ID] {
				t.Fatalf("order %s returned twice", o.ID)
			}
			seen[o.ID] = true
		}
		pages++
		if len(page) < 2 {
			break
		}
		c := CursorOf(page[len(page)-1])
		after = &c
		if pages > 5 {
			t.Fatalf("pagination did not terminate")
		}
	}
	if len(seen) != len(stamps) {
		t.Fatalf("expected %d orders across pages, got %d", len(stamps), len(seen))
	}
}

func TestOrderRepository_UserDeleteCascades(t *testing.T) {
	f := newOrderFixture(t, "ordercascade")
	ctx := context.Background()
	u, _ := f.users.Create(ctx, "dave", "h", models.RoleCustomer)
	o := newOrder(u.ID, time.Now(), line(1, "pen", 1, "1"))
	f.create(t, o)
	if _, err := f.db.ExecContext(ctx, f.db.Rebind(`DELETE FROM users WHERE id = ?`), u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	got, err := f.orders.GetByID(ctx, o.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("order should be removed with its user")
	}
}

func TestOrderRepository_ListCreatedRange(t *testing.T) {
	f := newOrderFixture(t, "orderrange")
	ctx := context.Background()

	u, _ := f.users.Create(ctx, "erin", "h", models.RoleCustomer)
	day := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 4; i++ {
		o := newOrder(u.ID, day.AddDate(0, 0, i), line(1, "pen", 1, "1"))
		f.create(t, o)
		ids = append(ids, o.ID)
	}

	from, to := day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)
	got, err := f.orders.List(ctx, ListOrdersParams{CreatedFrom: &from, CreatedTo: &to})
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(got) != 2 || got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Fatalf("expected days 2 and 1 inclusive, newest first: %+v", got)
	}

	got, err = f.orders.List(ctx, ListOrdersParams{CreatedFrom: &to})
	if err != nil || len(got) != 2 {
		t.Fatalf("open-ended range: %v len=%d", err, len(got))
	}
}

func TestOrderRepository_ListAttachesLinesAcrossBatches(t *testing.T) {
	f := newOrderFixture(t, "orderbatches")
	ctx := context.Background()

	u, _ := f.users.Create(ctx, "frank", "h", models.RoleCustomer)
	n := 2*lineBatchSize + 7
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := f.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := 0; i < n; i++ {
			o := newOrder(u.ID, base.Add(time.Duration(i)*time.Second), line(1, "pen", i%5+1, "1"))
			if err := f.orders.Insert(ctx, tx, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed orders: %v", err)
	}

	for name, list := range map[string]func() ([]models.Order, error){
		"all":  func() ([]models.Order, error) { return f.orders.List(ctx, ListOrdersParams{}) },
		"user": func() ([]models.Order, error) { return f.orders.ListByUserID(ctx, u.ID) },
	} {
		got, err := list()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(got) != n {
			t.Fatalf("%s: expected %d orders, got %d", name, n, len(got))
		}
		for i, o := range got {
			if len(o.Lines) != 1 {
				t.Fatalf("%s: order %d has %d lines", name, i, len(o.Lines))
			}
			// Newest first: position i was seeded as n-1-i.
			if want := (n-1-i)%5 + 1; o.Lines[0].Quantity != want {
				t.Fatalf("%s: order %d line quantity %d, want %d", name, i, o.Lines[0].Quantity, want)
			}
		}
	}
}
