package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cinetag/internal/ipc"
)

func newMoviesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "movies",
		Short: "List the movie inventory with assigned tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MovieList()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Movies) == 0 {
					fmt.Fprintln(stdout, "No movies found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Movies))
				for _, movie := range resp.Movies {
					rows = append(rows, []string{movie.ID, movie.Name, strings.Join(movie.Tags, ", ")})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Movie", "Tags"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}
