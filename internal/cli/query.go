package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tickets/internal/sqlite"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

func newGetCmd(a *app) *cobra.Command {
	var trash bool
	cmd := &cobra.Command{
		Use:   "get <uuid>",
		Short: "Show a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				t, err := svc.Get(ctx, actor, args[0], location(trash))
				if err != nil {
					return fmt.Errorf("get: %w", err)
				}
				return a.emit(cmd, t, func(w io.Writer) { printTicket(w, t) })
			})
		},
	}
	cmd.Flags().BoolVar(&trash, "trash", false, "look in the trash")
	return cmd
}

func printTicket(w io.Writer, t *types.Ticket) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("uuid", t.UUID)
	row("name", t.Name)
	row("location", string(t.Location))
	row("owner", t.Owner)
	row("comment", t.Comment)
	row("task", t.Payload.Task)
	row("host", t.Payload.Host)
	row("status", t.Payload.Status)
	row("severity", fmt.Sprintf("%.1f", t.Payload.Severity))
	row("assigned to", t.Payload.AssignedTo)
	row("created", t.CreatedAt.Format(time.RFC3339))
	row("modified", t.ModifiedAt.Format(time.RFC3339))
	tw.Flush()
}

func newListCmd(a *app) *cobra.Command {
	var (
		trash  bool
		filter types.ListFilter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Location = location(trash)
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				tickets, err := svc.List(ctx, actor, filter)
				if err != nil {
					return fmt.Errorf("list: %w", err)
				}
				return a.emit(cmd, tickets, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "UUID\tNAME\tSTATUS\tSEVERITY\tMODIFIED")
					for _, t := range tickets {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\n", t.UUID, t.Name, t.Payload.Status,
							t.Payload.Severity, t.ModifiedAt.Format(time.RFC3339))
					}
					tw.Flush()
				})
			})
		},
	}
	f := cmd.Flags()
	f.BoolVar(&trash, "trash", false, "list the trash")
	f.StringVar(&filter.Name, "name", "", "only tickets with this exact name")
	f.IntVar(&filter.Limit, "limit", 0, "maximum number of tickets (0 for all)")
	f.IntVar(&filter.Offset, "offset", 0, "number of tickets to skip")
	return cmd
}

func newTagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <uuid> <name> [value]",
		Short: "Attach a tag to an active ticket",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 3 {
				value = args[2]
			}
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				tag, err := svc.AddTag(ctx, actor, args[0], args[1], value)
				if err != nil {
					return fmt.Errorf("tag: %w", err)
				}
				return a.emit(cmd, tag, func(w io.Writer) {
					fmt.Fprintf(w, "Tagged ticket %s: %s=%s\n", args[0], tag.Name, tag.Value)
				})
			})
		},
	}
}

func newGrantCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <uuid> <capability> <subject-uuid>",
		Short: "Grant another actor a capability on one of your tickets",
		Long: "Grant another actor a capability on one of your active tickets.\n" +
			"Grantable capabilities: " + types.CapGetTickets + ", " + types.CapModifyTicket + ", " + types.CapDeleteTicket + ".",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				p, err := svc.Grant(ctx, actor, args[0], args[1], args[2])
				if err != nil {
					return fmt.Errorf("grant: %w", err)
				}
				return a.emit(cmd, p, func(w io.Writer) {
					fmt.Fprintf(w, "Granted %s on %s to %s\n", p.Name, args[0], p.Subject)
				})
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [dir]",
		Short: "Write visible tickets as JSONL, one file per store",
		Long: "Write the tickets visible to the configured actor as JSONL into dir\n" +
			"(default: <data-dir>/export): " + sqlite.ExportActiveFile + " and " + sqlite.ExportTrashFile + ".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			} else {
				cfg, err := a.backendConfig()
				if err != nil {
					return err
				}
				dir = filepath.Join(cfg.DataDir, "export")
			}
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				res, err := svc.Export(ctx, actor, dir)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				return a.emit(cmd, res, func(w io.Writer) {
					fmt.Fprintf(w, "Exported %d active and %d trashed tickets to %s\n", res.Active, res.Trash, dir)
				})
			})
		},
	}
}
