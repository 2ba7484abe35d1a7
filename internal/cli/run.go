package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run -- <command>",
		Short: "Run one command and record it",
		Example: `  errlog run -- make build
  errlog run -- 'grep -r TODO . | wc -l'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			command := strings.Join(args, " ")
			row, res, err := a.newRecorder(store).Record(cmd.Context(), command)
			if err != nil {
				return err
			}
			a.logger.Info("command recorded",
				zap.String("id", row.ID),
				zap.String("command", command),
				zap.Int("exit_code", res.ExitCode))

			_, _ = io.WriteString(cmd.OutOrStdout(), res.Stdout)
			_, _ = io.WriteString(cmd.ErrOrStderr(), res.Stderr)
			if res.ExitCode != 0 {
				return &ExitCodeError{Code: res.ExitCode}
			}
			return nil
		},
	}
}
