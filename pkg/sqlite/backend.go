// Package sqlite provides the public API for the SQLite ticket store.
// It exposes the factory functions while keeping implementation details
// internal.
package sqlite

import (
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/tickets/internal/sqlite"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

var _ types.Backend = (*sqlite.Backend)(nil)

// Store is an attached backend together with the lifecycle service over it.
type Store struct {
	types.Tickets
	backend *sqlite.Backend
}

// Close detaches the backend. Close is idempotent.
func (s *Store) Close() error {
	return s.backend.Detach()
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() types.Backend {
	return sqlite.NewBackend()
}

// Open attaches a SQLite store in config.DataDir and returns the lifecycle
// service over it, authorizing operations with gate.
//
// Example:
//
//	store, err := sqlite.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".tickets",
//	}, gate, zerolog.Nop())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(config types.Config, gate types.PermissionGate, log zerolog.Logger) (*Store, error) {
	b := sqlite.NewBackend(sqlite.WithBackendLogger(log))
	if err := b.Attach(config); err != nil {
		return nil, err
	}
	return &Store{
		Tickets: sqlite.NewService(b, gate, sqlite.WithLogger(log)),
		backend: b,
	}, nil
}
