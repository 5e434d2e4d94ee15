// Package store persists users and phonebook entries for the reference
// server. SQLite, PostgreSQL and MySQL are supported through bun.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/Makepad-fr/phonebook/internal/model"
)

// ErrNotFound is returned when an entry does not exist for the given key.
var ErrNotFound = errors.New("not found")

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	Key       string    `bun:"userkey,pk"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type entryRow struct {
	bun.BaseModel `bun:"table:phonebook"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Title       string `bun:"title"`
	FirstName   string `bun:"first_name"`
	LastName    string `bun:"last_name"`
	PhoneNumber string `bun:"phone_number"`
	UserKey     string `bun:"userkey,notnull"`
}

func (r entryRow) toModel() model.Entry {
	return model.Entry{
		ID:          r.ID,
		Title:       r.Title,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
	}
}

// Store is a bun backed phonebook store. It is safe for concurrent use.
type Store struct {
	db *bun.DB
}

// Open connects to the database and creates the tables when missing.
// dbType is one of "sqlite", "postgres" or "mysql".
func Open(ctx context.Context, dbType, dsn string) (*Store, error) {
	driverName := dbType
	// pgx registers itself as "pgx".
	if dbType == "postgres" {
		driverName = "pgx"
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbType, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbType == "sqlite" && dsn == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	var db *bun.DB
	switch dbType {
	case "sqlite":
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	case "postgres":
		db = bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		db = bun.NewDB(sqlDB, mysqldialect.New())
	default:
		_ = sqlDB.Close()
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Debug("store opened", "type", dbType)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, m := range []any{(*userRow)(nil), (*entryRow)(nil)} {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// CreateUser stores a new key. The key must not exist yet.
func (s *Store) CreateUser(ctx context.Context, key string) error {
	_, err := s.db.NewInsert().Model(&userRow{Key: key, CreatedAt: time.Now().UTC()}).Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserExists(ctx context.Context, key string) (bool, error) {
	ok, err := s.db.NewSelect().Model((*userRow)(nil)).Where("userkey = ?", key).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return ok, nil
}

// ListEntries returns the entries of key ordered by id.
func (s *Store) ListEntries(ctx context.Context, key string) ([]model.Entry, error) {
	var rows []entryRow
	if err := s.db.NewSelect().Model(&rows).Where("userkey = ?", key).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make([]model.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) GetEntry(ctx context.Context, key string, id int64) (model.Entry, error) {
	var row entryRow
	err := s.db.NewSelect().Model(&row).
		Where("id = ?", id).
		Where("userkey = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Entry{}, ErrNotFound
		}
		return model.Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return row.toModel(), nil
}

// CreateEntry stores f for key and returns the new id.
func (s *Store) CreateEntry(ctx context.Context, key string, f model.Fields) (int64, error) {
	row := &entryRow{
		Title:       f.Title,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		PhoneNumber: f.PhoneNumber,
		UserKey:     key,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return row.ID, nil
}

func (s *Store) UpdateEntry(ctx context.Context, key string, id int64, f model.Fields) error {
	if err := s.ensureEntry(ctx, key, id); err != nil {
		return err
	}
	row := &entryRow{
		ID:          id,
		Title:       f.Title,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		PhoneNumber: f.PhoneNumber,
		UserKey:     key,
	}
	_, err := s.db.NewUpdate().Model(row).
		Column("title", "first_name", "last_name", "phone_number").
		Where("id = ?", id).
		Where("userkey = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update entry %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, key string, id int64) error {
	if err := s.ensureEntry(ctx, key, id); err != nil {
		return err
	}
	_, err := s.db.NewDelete().Model((*entryRow)(nil)).
		Where("id = ?", id).
		Where("userkey = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

func (s *Store) ensureEntry(ctx context.Context, key string, id int64) error {
	ok, err := s.db.NewSelect().Model((*entryRow)(nil)).
		Where("id = ?", id).
		Where("userkey = ?", key).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("lookup entry %d: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
