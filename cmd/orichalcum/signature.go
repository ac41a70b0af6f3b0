package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/orichalcum/pkg/schema"
)

var signatureCmd = &cobra.Command{
	Use:   "signature <text>",
	Short: "Parse a signature and print its fields and hash",
	Example: `  orichalcum signature "question: text, context? -> answer"`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := schema.Parse(strings.Join(args, " "))
		if err != nil {
			return err
		}
		out, err := schema.Describe(sig).MarshalIndent()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signatureCmd)
}
