package sql

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"

	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/job"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			age INTEGER NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	_, err = db.Exec(`INSERT INTO users (name, age) VALUES ('Alice', 30), ('Bob', 25), ('Charlie', 35)`)
	if err != nil {
		t.Fatalf("failed to insert data: %v", err)
	}
	return db
}

type User struct {
	ID   int
	Name string
	Age  int
}

func scanUser(rows *sql.Rows) (User, error) {
	var u User
	err := rows.Scan(&u.ID, &u.Name, &u.Age)
	return u, err
}

func scanUserRow(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Age)
	return u, err
}

func TestQuery(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	users, err := Query(ctx, db, "SELECT id, name, age FROM users ORDER BY id", scanUser).Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	if users[0].Name != "Alice" {
		t.Errorf("expected first user 'Alice', got %q", users[0].Name)
	}
	if users[1].Name != "Bob" {
		t.Errorf("expected second user 'Bob', got %q", users[1].Name)
	}
	if users[2].Name != "Charlie" {
		t.Errorf("expected third user 'Charlie', got %q", users[2].Name)
	}
}

func TestQueryWithArgs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	users, err := Query(ctx, db, "SELECT id, name, age FROM users WHERE age > ?", scanUser, 26).Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestQueryRow(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	user, err := QueryRow(ctx, db, "SELECT id, name, age FROM users WHERE name = ?", scanUserRow, "Alice").Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != "Alice" || user.Age != 30 {
		t.Errorf("expected Alice(30), got %s(%d)", user.Name, user.Age)
	}
}

func TestQueryRow_NoRows(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	_, err := QueryRow(ctx, db, "SELECT id, name, age FROM users WHERE name = ?", scanUserRow, "Nobody").Wait(ctx)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestExec(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	result, err := Exec(ctx, db, "INSERT INTO users (name, age) VALUES (?, ?)", "Dave", 40).Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowsAffected != 1 {
		t.Errorf("expected 1 row affected, got %d", result.RowsAffected)
	}
	if result.LastInsertID != 4 {
		t.Errorf("expected last insert ID 4, got %d", result.LastInsertID)
	}
}

func TestTransaction(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	count, err := Transaction(ctx, db, func(ctx context.Context, tx *sql.Tx) (int, error) {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET age = age + 1"); err != nil {
			return 0, err
		}
		var n int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE age > 30").Scan(&n)
		return n, err
	}).Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 users over 30, got %d", count)
	}
}

func TestTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	boom := errors.New("boom")
	_, err := Transaction(ctx, db, func(ctx context.Context, tx *sql.Tx) (int, error) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
			return 0, err
		}
		return 0, boom
	}).Wait(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("expected rollback to keep 3 users, got %d", n)
	}
}

func TestQueryStrings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	rows, err := QueryStrings(ctx, db, "SELECT name, age FROM users ORDER BY id").Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Alice" || rows[0][1] != "30" {
		t.Errorf("expected [Alice 30], got %v", rows[0])
	}
}

func TestQueryMaps(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	rows, err := QueryMaps(ctx, db, "SELECT name FROM users WHERE id = 2").Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if name, ok := rows[0]["name"].(string); !ok || name != "Bob" {
		t.Errorf("expected name Bob, got %#v", rows[0]["name"])
	}
}

func TestQuery_Error(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	_, err := Query(ctx, db, "SELECT * FROM nonexistent", scanUser).Wait(ctx)
	if err == nil {
		t.Error("expected error for nonexistent table")
	}
}

func TestQueryEach_FanIn(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	names := []string{"Alice", "Bob", "Nobody", "Charlie"}
	futures := QueryEach(ctx, db, "SELECT id, name, age FROM users WHERE name = ?", scanUserRow, names, Args[string])

	var got []string
	var failures int
	for u, err := range core.All(ctx, core.FromJobs(job.Jobs(futures...))) {
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
			continue
		}
		got = append(got, u.Name)
	}

	sort.Strings(got)
	if len(got) != 3 || got[0] != "Alice" || got[1] != "Bob" || got[2] != "Charlie" {
		t.Errorf("expected [Alice Bob Charlie], got %v", got)
	}
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

func TestFan(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ages := []int{20, 26, 31, 40}
	stream := Fan(ctx, db, "SELECT COUNT(*) FROM users WHERE age > ?", func(row *sql.Row) (int, error) {
		var n int
		err := row.Scan(&n)
		return n, err
	}, ages, Args[int], job.WithLimit(2))

	counts, err := core.Slice(ctx, stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Ints(counts)
	want := []int{0, 1, 2, 3}
	if len(counts) != len(want) {
		t.Fatalf("expected %v, got %v", want, counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, counts)
		}
	}
}
