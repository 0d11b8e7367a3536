package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tickets/internal/acl"
	"github.com/mesh-intelligence/tickets/internal/logging"
	"github.com/mesh-intelligence/tickets/internal/paths"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

// initResult is the JSON output of init.
type initResult struct {
	ConfigFile string      `json:"config_file"`
	Created    bool        `json:"created"`
	DataDir    string      `json:"data_dir"`
	Actor      types.Actor `json:"actor"`
}

func newInitCmd(a *app) *cobra.Command {
	var (
		actorName string
		roles     []string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize tickets configuration and storage",
		Long: "Create the configuration directory and a config.yaml naming a new local actor,\n" +
			"then create the ticket database in the data directory. An existing config.yaml is kept.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.resolvedConfigDir, 0o755); err != nil {
				return sysError("create config directory: %w", err)
			}

			id, err := uuid.NewV7()
			if err != nil {
				return sysError("generate actor uuid: %w", err)
			}
			if actorName == "" {
				actorName = os.Getenv("USER")
			}
			cfg := configFile{
				Backend:   types.BackendSQLite,
				LogLevel:  "warn",
				LogFormat: logging.FormatConsole,
				Actor:     types.Actor{UUID: id.String(), Name: actorName, Roles: roles},
			}
			if a.dataDir != "" {
				if cfg.DataDir, err = filepath.Abs(a.dataDir); err != nil {
					return sysError("resolve data dir: %w", err)
				}
			}

			path := paths.ConfigFile(a.resolvedConfigDir)
			created, err := writeConfigIfMissing(path, cfg)
			if err != nil {
				return sysError("write config: %w", err)
			}
			if err := a.reload(); err != nil {
				return err
			}

			b, bcfg, err := a.attach()
			if err != nil {
				return err
			}
			if err := b.Detach(); err != nil {
				return sysError("finalize storage: %w", err)
			}

			res := initResult{ConfigFile: path, Created: created, DataDir: bcfg.DataDir, Actor: a.settings.Actor}
			return a.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintln(w, "Tickets initialized successfully")
				fmt.Fprintf(w, "config: %s\ndata:   %s\nactor:  %s\n", path, bcfg.DataDir, a.settings.Actor.UUID)
			})
		},
	}
	cmd.Flags().StringVar(&actorName, "actor-name", "", "name of the local actor (default: $USER)")
	cmd.Flags().StringSliceVar(&roles, "role", []string{acl.RoleAdmin}, "roles granted to the local actor")
	return cmd
}
