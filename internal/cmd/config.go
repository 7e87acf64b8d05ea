package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamancini/clientsync/internal/config"
	"github.com/adamancini/clientsync/internal/interactive"
	"github.com/adamancini/clientsync/internal/output"
	"github.com/adamancini/clientsync/internal/templates"
)

// isTerminal is replaced in tests.
var isTerminal = interactive.IsTerminal

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the configuration after defaults, environment expansion and
path resolution have been applied. Text output is rendered as YAML.

Use 'clientsync config init' to write a starter config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	})
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func runConfigShow(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return usageError(err)
	}
	if format == output.FormatText {
		source := cfg.Source
		if source == "" {
			source = "(defaults)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", source)
		format = output.FormatYAML
	}

	if err := output.NewWriter(cmd.OutOrStdout(), format).Write(cfg); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigInitCmd() *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Long: `Init writes a commented starter config. Without a path the file goes to
$XDG_CONFIG_HOME/clientsync/config.<format>, where clientsync looks for it.

Available formats: ` + strings.Join(templates.List(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runConfigInit(cmd, path, format, force)
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Config format: "+strings.Join(templates.List(), ", "))
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file without asking")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return templates.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runConfigInit(cmd *cobra.Command, path, format string, force bool) error {
	tmpl, err := templates.Get(format)
	if err != nil {
		return usageError(err)
	}

	if path == "" {
		dir, err := config.UserConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, tmpl.Filename)
	}

	if _, err := os.Stat(path); err == nil && !force {
		if !isTerminal() {
			return usageError(fmt.Errorf("%s already exists (use --force to overwrite)", path))
		}
		prompter := interactive.NewPrompterWithIO(cmd.InOrStdin(), cmd.OutOrStdout())
		if !prompter.Confirm("%s already exists. Overwrite?", path) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, tmpl.Content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "Set version_url and archive_url, then run 'clientsync sync'.")
	}
	return nil
}
