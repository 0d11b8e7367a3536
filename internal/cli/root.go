// Package cli implements the tickets command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tickets/internal/logging"
	"github.com/mesh-intelligence/tickets/internal/paths"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// app holds the global flag values and the state loaded before a
// subcommand runs.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool

	resolvedConfigDir string
	settings          settings
	log               zerolog.Logger
}

// NewRootCmd creates the top-level "tickets" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:     "tickets",
		Short:   "Manage remediation tickets with a trash",
		Long:    "Tickets creates, modifies, copies and deletes remediation tickets.\nDeleted tickets go to a trash from which they can be restored.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: $"+paths.EnvConfigDir+" or the platform config dir)")
	pf.StringVar(&a.dataDir, "data-dir", "", "data directory (default: config data_dir, $"+paths.EnvDataDir+", or $(CWD)/"+paths.DefaultDataDirName+")")
	pf.BoolVar(&a.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newCreateCmd(a),
		newModifyCmd(a),
		newDeleteCmd(a),
		newRestoreCmd(a),
		newCopyCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newTagCmd(a),
		newGrantCmd(a),
		newExportCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tickets:", err)
		os.Exit(exitCode(err))
	}
}

// load resolves the configuration directory, reads config.yaml and builds
// the logger.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	dir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	a.resolvedConfigDir = dir
	if err := a.reload(); err != nil {
		return err
	}
	a.log, err = logging.New(cmd.ErrOrStderr(), a.settings.LogLevel, a.settings.LogFormat)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// reload reads the settings from the resolved configuration directory.
func (a *app) reload() error {
	v, err := loadConfig(a.resolvedConfigDir)
	if err != nil {
		return err
	}
	a.settings, err = decodeSettings(v)
	return err
}

// cliError carries an explicit exit code.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

// sysError reports a failure of the environment rather than of the request.
func sysError(format string, args ...any) error {
	return &cliError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// exitCode maps a command error to the process exit status. Storage and
// I/O failures are system errors; everything else, including lifecycle
// rejections and bad arguments, is a user error.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	if errors.Is(err, types.ErrInternal) {
		return exitSysError
	}
	return exitUserError
}
