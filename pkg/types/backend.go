package types

// Backend is a storage engine the lifecycle service runs on. Callers attach
// it to a data directory, use it, and detach when done.
type Backend interface {
	// Attach opens the store described by config, creating DataDir if it
	// does not exist. Returns ErrAlreadyAttached if already attached.
	Attach(config Config) error

	// Detach releases backend resources. Detach is idempotent; afterwards
	// every operation returns ErrBackendDetached.
	Detach() error
}
