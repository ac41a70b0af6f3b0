package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/orichalcum/internal/dto"
	"github.com/aretw0/orichalcum/internal/presentation/graph"
	"github.com/aretw0/orichalcum/internal/validator"
	"github.com/aretw0/orichalcum/pkg/registry"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph>",
	Short: "Export the graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the graph file. --visited highlights a run path.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		visited, _ := cmd.Flags().GetStringSlice("visited")

		g, err := dto.Load(args[0])
		if err != nil {
			return err
		}
		start, err := validator.Build(g, registry.New())
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if len(visited) > 0 {
			overlay = &graph.Overlay{Visited: visited, Current: visited[len(visited)-1]}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.Mermaid(start, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringSlice("visited", nil, "Task ids of a run path to highlight, in order")
}
