package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information, set by cmd/keyframe.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "keyframe %s (commit: %s, built: %s)\n", Version, Commit, Date)
			return err
		},
	}
}
