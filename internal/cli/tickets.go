package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tickets/internal/sqlite"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		comment string
		payload types.TicketPayload
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an active ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				t, err := svc.Create(ctx, actor, types.CreateRequest{
					Name:    args[0],
					Comment: optional(cmd, "comment", &comment),
					Payload: payload,
				})
				if err != nil {
					return fmt.Errorf("create: %w", err)
				}
				return a.emit(cmd, t, func(w io.Writer) {
					fmt.Fprintf(w, "Created ticket %s (%s)\n", t.UUID, t.Name)
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&comment, "comment", "", "free-text comment")
	f.StringVar(&payload.Task, "task", "", "remediation task")
	f.StringVar(&payload.Report, "report", "", "report the ticket was raised from")
	f.StringVar(&payload.Host, "host", "", "affected host")
	f.StringVar(&payload.AffectedLocation, "affected-location", "", "affected location on the host")
	f.StringVar(&payload.SolutionType, "solution-type", "", "solution type")
	f.StringVar(&payload.AssignedTo, "assigned-to", "", "assignee")
	f.StringVar(&payload.Status, "status", "", "status (open, fixed, fix_verified, closed, orphaned)")
	f.Float64Var(&payload.Severity, "severity", 0, "severity score from 0 to 10")
	return cmd
}

func newModifyCmd(a *app) *cobra.Command {
	var name, comment string
	cmd := &cobra.Command{
		Use:   "modify <uuid>",
		Short: "Change the name and/or comment of an active ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.ModifyRequest{
				Name:    optional(cmd, "name", &name),
				Comment: optional(cmd, "comment", &comment),
			}
			if req.Name == nil && req.Comment == nil {
				return fmt.Errorf("modify: nothing to change; pass --name and/or --comment")
			}
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				t, err := svc.Modify(ctx, actor, args[0], req)
				if err != nil {
					return fmt.Errorf("modify: %w", err)
				}
				return a.emit(cmd, t, func(w io.Writer) {
					fmt.Fprintf(w, "Modified ticket %s (%s)\n", t.UUID, t.Name)
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&comment, "comment", "", "new comment")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var ultimate bool
	cmd := &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Move a ticket to the trash, or destroy it with --ultimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				if err := svc.Delete(ctx, actor, args[0], ultimate); err != nil {
					return fmt.Errorf("delete: %w", err)
				}
				result := "trashed"
				if ultimate {
					result = "deleted"
				}
				return a.emit(cmd, map[string]string{"uuid": args[0], "result": result}, func(w io.Writer) {
					if ultimate {
						fmt.Fprintf(w, "Deleted ticket %s\n", args[0])
					} else {
						fmt.Fprintf(w, "Moved ticket %s to the trash\n", args[0])
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&ultimate, "ultimate", false, "destroy the ticket instead of trashing it")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <uuid>",
		Short: "Move a trashed ticket back to the active set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				t, err := svc.Restore(ctx, actor, args[0])
				if err != nil {
					return fmt.Errorf("restore: %w", err)
				}
				return a.emit(cmd, t, func(w io.Writer) {
					fmt.Fprintf(w, "Restored ticket %s (%s)\n", t.UUID, t.Name)
				})
			})
		},
	}
}

func newCopyCmd(a *app) *cobra.Command {
	var (
		name, comment string
		trash         bool
	)
	cmd := &cobra.Command{
		Use:   "copy <uuid>",
		Short: "Create a new active ticket from an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *sqlite.Service, actor types.Actor) error {
				t, err := svc.Copy(ctx, actor, types.CopyRequest{
					SourceUUID: args[0],
					Name:       optional(cmd, "name", &name),
					Comment:    optional(cmd, "comment", &comment),
					From:       location(trash),
				})
				if err != nil {
					return fmt.Errorf("copy: %w", err)
				}
				return a.emit(cmd, t, func(w io.Writer) {
					fmt.Fprintf(w, "Copied ticket %s to %s (%s)\n", args[0], t.UUID, t.Name)
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the copy (default: \"<source> Clone\")")
	cmd.Flags().StringVar(&comment, "comment", "", "comment of the copy (default: the source comment)")
	cmd.Flags().BoolVar(&trash, "trash", false, "copy from the trash")
	return cmd
}
