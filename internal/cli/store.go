package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tickets/internal/paths"
	"github.com/mesh-intelligence/tickets/internal/sqlite"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

// backendConfig builds the backend configuration from flags and settings.
func (a *app) backendConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.dataDir, a.settings.DataDir)
	if err != nil {
		return types.Config{}, sysError("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend:     a.settings.Backend,
		DataDir:     dataDir,
		BusyTimeout: a.settings.BusyTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// attach opens the configured backend. The caller must Detach it.
func (a *app) attach() (*sqlite.Backend, types.Config, error) {
	cfg, err := a.backendConfig()
	if err != nil {
		return nil, cfg, err
	}
	b := sqlite.NewBackend(sqlite.WithBackendLogger(a.log))
	if err := b.Attach(cfg); err != nil {
		return nil, cfg, sysError("attach backend: %w", err)
	}
	return b, cfg, nil
}

// run executes fn with the configured actor and a lifecycle service over
// an attached backend, detaching when fn returns.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error) error {
	actor, err := a.settings.actor()
	if err != nil {
		return err
	}
	b, _, err := a.attach()
	if err != nil {
		return err
	}
	defer b.Detach()

	svc := sqlite.NewService(b, a.settings.gate(), sqlite.WithLogger(a.log))
	return fn(cmd.Context(), svc, actor)
}

// emit writes v as indented JSON in --json mode, otherwise calls human.
func (a *app) emit(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if !a.jsonMode {
		human(w)
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// optional returns a pointer to *val when the named flag was set.
func optional(cmd *cobra.Command, flag string, val *string) *string {
	if cmd.Flags().Changed(flag) {
		return val
	}
	return nil
}

// location maps the --trash flag to a ticket location.
func location(trash bool) types.Location {
	if trash {
		return types.LocationTrash
	}
	return types.LocationActive
}
