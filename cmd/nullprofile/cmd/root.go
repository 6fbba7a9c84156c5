// Package cmd implements the nullprofile CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nullprofile",
		Short: "OpenID Connect provider with passkeys and pairwise subjects",
		Long: `nullprofile is an OpenID Connect identity provider. Users sign in with
WebAuthn passkeys and every relying party sees a different, stable subject.

Configuration is read from NP_* environment variables or a .env file.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newRPCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
