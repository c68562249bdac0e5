package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	// Open database connection
	db, err := sqlx.Open("sqlite3", dsn+sep+"_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	// SQLite allows one writer; in-memory databases are per connection.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Delivery Operations
// =============================================================================

// deliveryRow represents a delivery row in the database.
type deliveryRow struct {
	ID         string `db:"id"`
	Event      string `db:"event"`
	Action     string `db:"action"`
	Repository string `db:"repository"`
	ReceivedAt string `db:"received_at"`
}

func toRow(d Delivery) deliveryRow {
	return deliveryRow{
		ID:         d.ID,
		Event:      d.Event,
		Action:     d.Action,
		Repository: d.Repository,
		ReceivedAt: d.ReceivedAt.UTC().Format(timeFormat),
	}
}

func (r deliveryRow) toDelivery() (Delivery, error) {
	receivedAt, err := time.Parse(timeFormat, r.ReceivedAt)
	if err != nil {
		return Delivery{}, NewStoreError("ListDeliveries", r.ID, "invalid received_at", ErrInvalidData)
	}
	return Delivery{
		ID:         r.ID,
		Event:      r.Event,
		Action:     r.Action,
		Repository: r.Repository,
		ReceivedAt: receivedAt,
	}, nil
}

// RecordDelivery stores d unless a delivery with the same ID exists.
func (s *SQLiteStore) RecordDelivery(ctx context.Context, d Delivery) (bool, error) {
	if d.ID == "" {
		return false, NewStoreError("RecordDelivery", "", "delivery id is required", ErrInvalidData)
	}
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = time.Now()
	}

	result, err := s.db.NamedExecContext(ctx, `
		INSERT OR IGNORE INTO deliveries (id, event, action, repository, received_at)
		VALUES (:id, :event, :action, :repository, :received_at)`, toRow(d))
	if err != nil {
		return false, NewStoreError("RecordDelivery", d.ID, err.Error(), err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, NewStoreError("RecordDelivery", d.ID, err.Error(), err)
	}
	return n > 0, nil
}

// ListDeliveries returns deliveries, most recent first.
func (s *SQLiteStore) ListDeliveries(ctx context.Context, opts ListOptions) ([]Delivery, error) {
	opts = opts.Normalize()

	var rows []deliveryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, event, action, repository, received_at
		FROM deliveries
		ORDER BY received_at DESC, id
		LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListDeliveries", "", err.Error(), err)
	}

	deliveries := make([]Delivery, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDelivery()
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

// PruneDeliveries deletes deliveries received before the cutoff.
func (s *SQLiteStore) PruneDeliveries(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM deliveries WHERE received_at < ?`, before.UTC().Format(timeFormat))
	if err != nil {
		return 0, NewStoreError("PruneDeliveries", "", err.Error(), err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, NewStoreError("PruneDeliveries", "", err.Error(), err)
	}
	return n, nil
}
