package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	h, err := Open("file:dbopen?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	versions, err := AppliedVersions(h)
	if err != nil {
		t.Fatalf("applied versions: %v", err)
	}
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("unexpected versions: %v", versions)
	}
	for _, table := range []string{"users", "items", "orders", "order_lines"} {
		var name string
		err := h.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	dsn := "file:dbreopen?mode=memory&cache=shared"
	h1, err := Open(dsn)
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	t.Cleanup(func() { _ = h1.Close() })
	// Second handle on the same shared-cache database must not re-run migrations.
	h2, err := Open(dsn)
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	_ = h2.Close()
}

func TestRollbackLast(t *testing.T) {
	h, err := Open("file:dbrollback?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	if err := RollbackLast(h); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	versions, _ := AppliedVersions(h)
	if len(versions) != 1 || versions[0] != 1 {
		t.Fatalf("expected only v1 after rollback, got %v", versions)
	}
	var n int
	err = h.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'orders'`).Scan(&n)
	if err != nil || n != 0 {
		t.Fatalf("orders table should be gone: n=%d err=%v", n, err)
	}
	if err := RollbackLast(h); err != nil {
		t.Fatalf("rollback v1: %v", err)
	}
	if err := RollbackLast(h); err != nil {
		t.Fatalf("rollback on empty history should be a no-op: %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y IN (?, ?)`
	sqlite := &Handle{Dialect: SQLite}
	if got := sqlite.Rebind(q); got != q {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	pg := &Handle{Dialect: Postgres}
	want := `SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)`
	if got := pg.Rebind(q); got != want {
		t.Fatalf("postgres rebind: got %q want %q", got, want)
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{"": SQLite, "sqlite3": SQLite, "SQLite": SQLite, "postgres": Postgres, "pgx": Postgres}
	for in, want := range cases {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Fatalf("ParseDialect(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	h, err := Open("file:dbwithtx?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	ctx := context.Background()

	boom := errors.New("boom")
	err = h.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (name, quantity, price) VALUES ('pen', 1, '1.00')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var n int
	if err := h.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("insert should be rolled back: n=%d err=%v", n, err)
	}

	err = h.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO items (name, quantity, price) VALUES ('pen', 1, '1.00')`)
		return err
	})
	if err != nil {
		t.Fatalf("commit path: %v", err)
	}
	if err := h.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("insert should be committed: n=%d err=%v", n, err)
	}
}
