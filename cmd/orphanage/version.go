// Version command for the orphanage CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/orphanage/pkg/orphanage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the orphanage version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "orphanage", orphanage.Version)
	},
}
