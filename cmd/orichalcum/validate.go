package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aretw0/orichalcum/internal/cli"
	"github.com/aretw0/orichalcum/internal/presentation/tui"
	"github.com/aretw0/orichalcum/internal/validator"
)

var errValidation = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate <graph>",
	Short: "Check a graph file for missing inputs and routing mistakes",
	Long:  `Seals every node of the graph and runs the dataflow analysis from 'start'. Errors always fail the command; with --strict, warnings and unreachable nodes fail it too.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")

		report, err := validator.ValidateFile(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		tui.PrintSummary(out, cli.Profile(out), args[0], report.Result, report.Unreachable)

		if !report.OK(strict) {
			return errValidation
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Fail on warnings too")
}
