package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamancini/clientsync/internal/ctxlog"
	"github.com/adamancini/clientsync/internal/output"
	"github.com/adamancini/clientsync/internal/types"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	logFormat    string
	verbose      bool
	quiet        bool
)

// buildInfo is stamped by the linker through main
var buildInfo = struct {
	version string
	commit  string
	date    string
}{"dev", "none", "unknown"}

// Execute runs the root command with ctx, which is canceled on interrupt by main.
func Execute(ctx context.Context, version, commit, date string) error {
	return NewRootCmd(version, commit, date).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree. Flags are rebound on every call.
func NewRootCmd(version, commit, date string) *cobra.Command {
	buildInfo.version, buildInfo.commit, buildInfo.date = version, commit, date

	var force bool

	rootCmd := &cobra.Command{
		Use:   "clientsync",
		Short: "Keep a local client build in sync with the published version",
		Long: `clientsync checks the version published by the build service against the
version marker of the locally installed client. When they differ it downloads
the client archive and reinstalls it from scratch.

Running clientsync without a subcommand is the same as 'clientsync sync'.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupGlobals,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, force)
		},
	}
	rootCmd.SetVersionTemplate(versionLine() + "\n")

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: "+strings.Join(output.Formats(), ", "))
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.Flags().BoolVar(&force, "force", false, "Reinstall even when the installed version is current")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	// Add subcommands
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion functions for enum flags
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(types.LogFormatText), string(types.LogFormatJSON)}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// setupGlobals validates the global flags and puts the logger into the command context.
func setupGlobals(cmd *cobra.Command, args []string) error {
	if _, err := output.ParseFormat(outputFormat); err != nil {
		return usageError(err)
	}

	format, err := types.ParseLogFormat(logFormat)
	if err != nil {
		return usageError(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := ctxlog.New(cmd.ErrOrStderr(), format, ctxlog.LevelFor(verbose, quiet))
	cmd.SetContext(ctxlog.WithLogger(ctx, logger))

	return nil
}

// writeOutput renders v with the --output format.
func writeOutput(cmd *cobra.Command, v interface{}) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return usageError(err)
	}
	if err := output.NewWriter(cmd.OutOrStdout(), format).Write(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
