package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runPlanPath string
	runDeliver  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a full outreach pipeline run from a plan file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		plan, err := loadPlan(runPlanPath)
		if err != nil {
			return err
		}
		if runDeliver {
			plan.Deliver = true
		}

		e, err := initEnv(ctx, plan.Deliver)
		if err != nil {
			return err
		}
		defer e.Close()

		run, err := e.Orchestrator.Run(ctx, plan)
		if run != nil {
			zap.L().Info("run finished", zap.String("run_id", run.ID), zap.String("stage", string(run.Stage)))
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runPlanPath, "plan", "plan.yaml", "path to the run plan YAML")
	runCmd.Flags().BoolVar(&runDeliver, "deliver", false, "enable the delivery stage regardless of the plan setting")
	rootCmd.AddCommand(runCmd)
}
