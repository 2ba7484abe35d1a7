package cli

import (
	"fmt"

	"errlog/internal/export"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the log as a markdown report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			rows, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			dir := a.cfg.ExportDir
			if out != "" {
				dir = out
			}
			exp, err := export.New(dir)
			if err != nil {
				return err
			}
			path, err := exp.Export(store.Path(), rows)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory for the report (default: next to the log)")
	return cmd
}
