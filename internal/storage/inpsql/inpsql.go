// Package inpsql implements storage on top of PostgreSQL.
package inpsql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Storage struct {
	Cfg *config.StorageConfig
	DB  *sql.DB
	log *zerolog.Logger
}

// InitStorage connects to PostgreSQL and applies pending migrations.
func InitStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err = runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	st := NewWithDB(db, log)
	st.Cfg = cfg
	log.Info().Msg("PSQL DB connection was established")
	return st, nil
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB, log *zerolog.Logger) *Storage {
	return &Storage{DB: db, log: log}
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.DB.Close()
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// classify turns a driver error into one of the typed storage errors.
func classify(ctx context.Context, err error, id string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		if ctx.Err() != nil {
			return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
		}
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &storageErrors.AlreadyExistsError{Err: err, ID: id}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &storageErrors.NotFoundError{Err: err, ID: id}
	}
	return &storageErrors.ExecutionPSQLError{Err: err}
}

// escapeLike makes \, % and _ match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
