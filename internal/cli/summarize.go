package cli

import (
	"fmt"

	"errlog/internal/summarize"

	"github.com/spf13/cobra"
)

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		all bool
		id  string
		row int
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Fill the error and notes summaries of logged rows",
		Long: `Summarizes the Error and User_Notes columns with the configured
backend. Without --id or --row every row is summarized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			model, err := a.newSummarizer()
			if err != nil {
				return err
			}
			svc := summarize.NewService(store, model, a.logger)
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("row") {
				id, err = store.IDAt(cmd.Context(), row)
				if err != nil {
					return err
				}
			}
			if id == "" || all {
				n, err := svc.SummarizeAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "summarized %d rows\n", n)
				return nil
			}

			r, err := svc.SummarizeRow(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Error_Summary: %s\nNotes_Summary: %s\n", r.ErrorSummary, r.NotesSummary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "summarize every row")
	cmd.Flags().StringVar(&id, "id", "", "summarize the row with this ID")
	cmd.Flags().IntVar(&row, "row", 0, "summarize the row at this zero-based position")
	cmd.MarkFlagsMutuallyExclusive("all", "id", "row")
	return cmd
}
