package cmd

import (
	"fmt"

	"github.com/aussiebroadwan/nullprofile/internal/idp/app"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "nullprofile version %s\n", app.BuildVersion)
			return err
		},
	}
}
