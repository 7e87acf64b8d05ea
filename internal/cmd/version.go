package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/clientsync/internal/output"
)

// versionInfo is the build stamp printed by the version command
type versionInfo struct {
	Version string `json:"version" yaml:"version" toml:"version"`
	Commit  string `json:"commit" yaml:"commit" toml:"commit"`
	Date    string `json:"date" yaml:"date" toml:"date"`
}

func (v versionInfo) String() string {
	return fmt.Sprintf("clientsync version %s (commit %s, built %s)", v.Version, v.Commit, v.Date)
}

func versionLine() string {
	return currentVersion().String()
}

func currentVersion() versionInfo {
	return versionInfo{Version: buildInfo.version, Commit: buildInfo.commit, Date: buildInfo.date}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the clientsync build version, commit and build date.

Examples:
  clientsync version            # Human-readable
  clientsync version -o json    # Machine-readable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(outputFormat)
			if err != nil {
				return usageError(err)
			}
			return output.NewWriter(cmd.OutOrStdout(), format).Write(currentVersion())
		},
	}
}
