package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/orichalcum/internal/cli"
	"github.com/aretw0/orichalcum/internal/dto"
	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/observability"
	"github.com/aretw0/orichalcum/pkg/registry"
)

var runCmd = &cobra.Command{
	Use:   "run <graph> [key=value...]",
	Short: "Run a graph of model-answered tasks",
	Long:  `Builds every node of the graph as a task answered by the configured llm provider, checks the graph against the given inputs and runs it. The final shared state is printed as JSON.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		provider, err := cli.NewProvider(cfg, logger)
		if err != nil {
			return err
		}
		tel, err := cli.NewTelemetry(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := tel.Close(); err != nil {
				logger.Warn("telemetry close failed", "error", err)
			}
		}()

		g, err := dto.Load(args[0])
		if err != nil {
			return err
		}
		shared, err := cli.ParseInputs(args[1:])
		if err != nil {
			return err
		}

		hooks := []flow.Hooks{observability.LogHooks(logger)}
		if tel.Metrics != nil {
			hooks = append(hooks, tel.Metrics.Hooks())
		}
		f, err := cli.BuildSemantic(g, provider, cfg.LLM, registry.New(), logger, cfg.FlowOptions(logger, tel.Sink, hooks...)...)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		out, err := cli.RunSemantic(ctx, f, shared)
		if err != nil {
			if sig := ctx.Signal(); sig != nil {
				fmt.Fprintf(os.Stderr, "interrupted by %v after %d step(s)\n", sig, out.Steps)
			}
			return err
		}

		data, err := shared.Snapshot().MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		logger.Info("run finished", "steps", out.Steps, "path", out.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
