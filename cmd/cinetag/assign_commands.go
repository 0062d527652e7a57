package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cinetag/internal/api"
	"cinetag/internal/ipc"
)

func newAssignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign TAG MOVIE",
		Short: "Assign a tag to a movie (by id, name, or path)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Assign(args[0], args[1])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Assigned %q to %q\n", args[0], args[1])
				printOutcomeSummary(stdout, resp.Outcome)
				return nil
			})
		},
	}
}

func newUnassignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign TAG MOVIE",
		Short: "Remove a tag from a movie (by id, name, or path)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Unassign(args[0], args[1])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Removed %q from %q\n", args[0], args[1])
				printOutcomeSummary(stdout, resp.Outcome)
				return nil
			})
		},
	}
}

func newToggleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle TAG MOVIE",
		Short: "Toggle a tag assignment on a movie",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Toggle(args[0], args[1])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Assigned {
					fmt.Fprintf(stdout, "Assigned %q to %q\n", args[0], args[1])
				} else {
					fmt.Fprintf(stdout, "Removed %q from %q\n", args[0], args[1])
				}
				printOutcomeSummary(stdout, resp.Outcome)
				return nil
			})
		},
	}
}

func printOutcomeSummary(w io.Writer, outcome *api.CycleOutcome) {
	if outcome == nil {
		return
	}
	if outcome.Coalesced {
		fmt.Fprintln(w, "Change queued behind the running cycle")
		return
	}
	fmt.Fprintf(w, "Cycle applied %d mutations", outcome.Mutations)
	if outcome.Failures > 0 {
		fmt.Fprintf(w, " (%d failures)", outcome.Failures)
	}
	fmt.Fprintln(w)
	if vis := outcome.Visibility; vis != nil {
		if vis.Aborted {
			fmt.Fprintln(w, "Visibility sync aborted; grants left unchanged")
		} else if len(vis.Granted)+len(vis.Revoked) > 0 {
			fmt.Fprintf(w, "Visibility: %d granted, %d revoked\n", len(vis.Granted), len(vis.Revoked))
		}
	}
}
