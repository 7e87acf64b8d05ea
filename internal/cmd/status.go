package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/clientsync/internal/update"
)

func newStatusCmd() *cobra.Command {
	var exitCode bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Compare the installed client version with the published one",
		Long: `Status queries the version endpoint and reads the installed version marker
without downloading or changing anything.

With --exit-code the command exits 3 when the install is out of date, which
makes it usable as a check in scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, exitCode)
		},
	}

	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with status 3 when an update is available")

	return cmd
}

func runStatus(cmd *cobra.Command, exitCode bool) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	status, err := update.NewSyncer(cfg).Check(ctx)
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	if err := writeOutput(cmd, status); err != nil {
		return err
	}

	if exitCode && status.Decision.IsStale() {
		return &ExitError{Code: ExitStale, Silent: true}
	}
	return nil
}
