package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cinetag/internal/ipc"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconcile-and-sync cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reconcile()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Outcome)
				}
				stdout := cmd.OutOrStdout()
				outcome := resp.Outcome
				if outcome == nil {
					fmt.Fprintln(stdout, "No cycle outcome reported")
					return nil
				}
				if outcome.Coalesced {
					fmt.Fprintln(stdout, "Reconcile request coalesced into the running cycle")
					return nil
				}
				if rec := outcome.Reconcile; rec != nil {
					fmt.Fprintf(stdout, "Links: %d created, %d removed\n", len(rec.Created), len(rec.Removed))
					if len(rec.Pruned) > 0 {
						fmt.Fprintf(stdout, "Pruned %d stale assignments\n", len(rec.Pruned))
					}
					if len(rec.Foreign) > 0 {
						fmt.Fprintf(stdout, "Skipped %d foreign entries in the tag tree\n", len(rec.Foreign))
					}
					if rec.Partial {
						fmt.Fprintf(stdout, "Pass was partial: %d failures\n", len(rec.Failures))
					}
				}
				if vis := outcome.Visibility; vis != nil {
					if vis.Aborted {
						fmt.Fprintln(stdout, "Visibility sync aborted; grants left unchanged")
					} else {
						fmt.Fprintf(stdout, "Visibility: %d granted, %d revoked\n", len(vis.Granted), len(vis.Revoked))
					}
				}
				fmt.Fprintln(stdout, "Reconcile complete")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}
