package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cinetag/internal/ipc"
)

func newTagCommand(ctx *commandContext) *cobra.Command {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tags with movie counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TagList()
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Tags) == 0 {
					fmt.Fprintln(stdout, "No tags defined")
					return nil
				}
				rows := make([][]string, 0, len(resp.Tags))
				for _, tag := range resp.Tags {
					rows = append(rows, []string{tag.Name, strconv.Itoa(tag.MovieCount), yesNo(tag.Visible)})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Tag", "Movies", "Visible"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit JSON output")

	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TagCreate(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created tag %q\n", resp.Name)
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a tag and all of its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TagDelete(args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Deleted tag %q\n", args[0])
				printOutcomeSummary(stdout, resp.Outcome)
				return nil
			})
		},
	}

	tagCmd.AddCommand(listCmd, createCmd, deleteCmd)
	return tagCmd
}
