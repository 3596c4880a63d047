package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [nodes...|all]",
		Short: "Build nodes, restoring cached results where possible",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			noCache, _ := cmd.Flags().GetBool("no-cache")
			parallel, _ := cmd.Flags().GetInt("parallel")
			targets, _ := cmd.Flags().GetStringSlice("targets")
			return c.app.Run(cmd.Context(), args, app.RunOptions{
				NoCache:     noCache,
				Parallelism: parallel,
				Targets:     targets,
			})
		},
	}
	cmd.Flags().BoolP("no-cache", "n", false, "Skip cache lookups and rebuild; results are still stored")
	cmd.Flags().IntP("parallel", "j", 0, "Maximum concurrent node executions (default: number of CPUs)")
	cmd.Flags().StringSlice("targets", nil, "Target set to build instead of each node's default")
	return cmd
}
