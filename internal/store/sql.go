package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLStore is an ItemStore backed by database/sql. Queries use "?"
// placeholders, which SQLite and MySQL drivers accept.
//
// The table has the schema:
//
//	CREATE TABLE optilist_items (
//	    id INTEGER PRIMARY KEY AUTOINCREMENT,
//	    list TEXT NOT NULL,
//	    title TEXT NOT NULL,
//	    created_at_unixms INTEGER NOT NULL
//	);
type SQLStore struct {
	db        *sql.DB
	tableName string
	ownsDB    bool
	closed    atomic.Bool
	now       func() time.Time
}

// SQLStoreOption configures an SQLStore.
type SQLStoreOption func(*SQLStore)

// WithTableName sets the item table. Default: "optilist_items".
func WithTableName(name string) SQLStoreOption {
	return func(s *SQLStore) { s.tableName = name }
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSQLStore wraps db. The caller keeps ownership of db; call Migrate
// before first use unless the table already exists.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) (*SQLStore, error) {
	s := &SQLStore{
		db:        db,
		tableName: "optilist_items",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !tableNamePattern.MatchString(s.tableName) {
		return nil, fmt.Errorf("store: invalid table name %q", s.tableName)
	}
	return s, nil
}

// OpenSQLite opens (or creates) the SQLite database at path and migrates
// it. Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...SQLStoreOption) (*SQLStore, error) {
	// modernc.org/sqlite registers itself as "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Pragmas are per connection and every connection to :memory: is a
	// separate database, so the pool holds a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	s, err := NewSQLStore(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the item table and its index if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			list TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL
		)`, s.tableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_list ON %s(list, id)`, s.tableName, s.tableName),
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Create implements ItemStore.
func (s *SQLStore) Create(ctx context.Context, list, title string) (Item, error) {
	if s.closed.Load() {
		return Item{}, ErrClosed
	}
	list, title, err := validate(list, title)
	if err != nil {
		return Item{}, err
	}

	created := s.now().UTC().Truncate(time.Millisecond)
	query := fmt.Sprintf(`INSERT INTO %s (list, title, created_at_unixms) VALUES (?, ?, ?)`, s.tableName)
	res, err := s.db.ExecContext(ctx, query, list, title, created.UnixMilli())
	if err != nil {
		return Item{}, fmt.Errorf("store: create: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Item{}, fmt.Errorf("store: create: %w", err)
	}
	return Item{ID: id, List: list, Title: title, CreatedAt: created}, nil
}

// List implements ItemStore.
func (s *SQLStore) List(ctx context.Context, list string) ([]Item, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	query := fmt.Sprintf(`SELECT id, list, title, created_at_unixms FROM %s WHERE list = ? ORDER BY id`, s.tableName)
	rows, err := s.db.QueryContext(ctx, query, list)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var (
			it Item
			ms int64
		)
		if err := rows.Scan(&it.ID, &it.List, &it.Title, &ms); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		it.CreatedAt = time.UnixMilli(ms).UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return items, nil
}

// Close implements ItemStore. The database is closed only when the store
// opened it.
func (s *SQLStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
