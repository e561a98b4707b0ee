package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	auth "github.com/pulseapp/pulse-auth"
)

func newHOCCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hoc",
		Short: "Review head of class requests",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "pending",
			Short: "List accounts waiting for HOC approval",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withRegistrar(cmd.Context(), func(r *auth.Registrar) error {
					pending, err := r.ListPendingHOC(cmd.Context())
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), pending)
				})
			},
		},
		&cobra.Command{
			Use:   "approve <account-id>",
			Short: "Approve a pending HOC request",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid account id %q: %w", args[0], err)
				}
				return c.withRegistrar(cmd.Context(), func(r *auth.Registrar) error {
					view, err := r.ApproveHOC(cmd.Context(), cliActor, id)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), view)
				})
			},
		},
		newRejectCmd(c),
	)

	return cmd
}

func newRejectCmd(c *cli) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <account-id>",
		Short: "Reject a pending HOC request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id %q: %w", args[0], err)
			}
			return c.withRegistrar(cmd.Context(), func(r *auth.Registrar) error {
				view, err := r.RejectHOC(cmd.Context(), cliActor, id, reason)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), view)
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded with the rejection")
	return cmd
}

var cliActor = auth.ActorRef{ID: "cli", Type: "system"}

func (c *cli) withRegistrar(ctx context.Context, fn func(*auth.Registrar) error) error {
	svc, err := c.buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc.registrar)
}

func writeJSON(w io.Writer, v any) error {
	_, err := fmt.Fprintln(w, print.MaybePrettyJSON(v))
	return err
}
