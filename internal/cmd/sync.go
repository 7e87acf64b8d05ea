package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/adamancini/clientsync/internal/ctxlog"
	"github.com/adamancini/clientsync/internal/output"
	"github.com/adamancini/clientsync/internal/update"
)

func newSyncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Install the published client build if the local one is out of date",
		Long: `Sync queries the version endpoint and compares the answer with the installed
version marker. When they differ, or no marker exists, the client archive is
downloaded and the install directory is replaced with its contents.

Only one sync runs at a time per archive path; a second concurrent run fails
immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reinstall even when the installed version is current")

	return cmd
}

// runSync executes the sync pipeline once.
func runSync(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()
	log := ctxlog.FromContext(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return usageError(err)
	}

	// Progress lines only make sense for a person reading text output.
	console := format == output.FormatText && !quiet

	syncer := update.NewSyncer(cfg).WithForce(force)
	if console {
		syncer.WithObserver(update.NewConsoleObserver(cmd.OutOrStdout(), cmd.ErrOrStderr()))
	}

	res, err := syncer.Run(ctx)
	if errors.Is(err, update.ErrLocked) {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	if res != nil {
		for _, w := range res.Warnings {
			log.Debug("tolerated", "warning", w)
		}
		if format != output.FormatText {
			if werr := writeOutput(cmd, res); werr != nil {
				return werr
			}
		}
	}

	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err, Silent: console}
	}
	return nil
}
