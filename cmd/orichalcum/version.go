package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/orichalcum"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of orichalcum",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "orichalcum version %s\n", orichalcum.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
