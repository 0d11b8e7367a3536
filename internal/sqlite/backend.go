// Package sqlite implements the ticket store on SQLite: the active and trash
// tables, the tag and permission tables that reference them, and the
// lifecycle service that moves tickets between the two stores.
package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// DatabaseFile is the name of the SQLite file inside the data directory.
const DatabaseFile = "tickets.db"

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Backend owns the SQLite connection pool. It is created detached; Attach
// opens the database and applies the schema.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sqlx.DB
	log      zerolog.Logger
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithBackendLogger sets the logger used for attach, detach and export.
func WithBackendLogger(l zerolog.Logger) BackendOption {
	return func(b *Backend) { b.log = l }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens (creating if needed) the database in config.DataDir and
// applies the schema. Existing data is kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	db, err := sqlx.Open(driverName, dsn(dbPath, config))
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	b.log.Debug().Str("path", dbPath).Msg("backend attached")
	return nil
}

// dsn builds the connection string. Every transaction begins IMMEDIATE so
// the write lock is taken before the first read; competing writers wait up
// to the busy timeout.
func dsn(path string, config types.Config) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.EffectiveBusyTimeout().Milliseconds()))
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Detach closes the database. Detach is idempotent. After Detach, all
// operations return ErrBackendDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.log.Debug().Msg("backend detached")
	return nil
}

// withTx runs fn inside one transaction. The transaction commits only if fn
// returns nil; every other path rolls back. Storage failures are reported
// wrapped in ErrInternal.
func (b *Backend) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrBackendDetached
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return internalf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return internalf("committing transaction: %w", err)
	}
	return nil
}

// internalf formats a storage failure and marks it as ErrInternal.
func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %w", types.ErrInternal, fmt.Errorf(format, args...))
}
