package cli

import (
	"os"
	"os/signal"
	"syscall"

	"errlog/internal/repl"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Prompt for commands and record every run",
		Long: `Reads commands from stdin at a "$ " prompt, runs each one through the
shell and appends it to the log. Type exit or quit to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			loop := repl.New(a.newRecorder(store), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), a.logger)
			a.logger.Info("shell started", zap.String("log_file", store.Path()))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				// Leaving the loop releases the signal watcher below.
				defer stop()
				return loop.Run(gctx)
			})
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("shell stopped", zap.String("log_file", store.Path()))
				return nil
			})
			return g.Wait()
		},
	}
}
