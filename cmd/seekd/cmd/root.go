// Package cmd provides the CLI commands for seekd.
//
// Most commands are thin clients of a running seekd server; serve runs the
// server itself. Exit codes: 0 success, 1 user error, 2 not found,
// 3 conflict, 4 server unreachable, 5 internal failure.
package cmd

import (
	"github.com/spf13/cobra"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/pkg/version"
)

// NewRootCmd creates the root command for the seekd CLI.
func NewRootCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "seekd",
		Short: "Local-first hybrid search over code and documentation",
		Long: `seekd indexes registered repositories and directories into a dual
lexical and vector index and answers keyword, semantic, and hybrid queries.

Run 'seekd serve' to start the server, then register sources with
'seekd sources add <path>' and search with 'seekd search <query>'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("seekd version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"seekd server URL (default http://localhost:8674, or SEEKD_SERVER)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd(&serverURL))
	cmd.AddCommand(newSourcesCmd(&serverURL))
	cmd.AddCommand(newAgentCmd(&serverURL))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// ExitCode maps an error to the documented process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch seekerrors.KindOf(err) {
	case seekerrors.KindInvalidInput:
		return 1
	case seekerrors.KindNotFound:
		return 2
	case seekerrors.KindConflict:
		return 3
	case seekerrors.KindDependencyUnavailable, seekerrors.KindTransient:
		return 4
	default:
		return 5
	}
}
