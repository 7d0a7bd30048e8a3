package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Resume a run from its last persisted stage snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runID := args[0]

		// The plan decides whether delivery (and its session) is needed, so
		// look it up before wiring collaborators.
		probe, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		run, err := probe.Store.GetRun(ctx, runID)
		probe.Close()
		if err != nil {
			return eris.Wrapf(err, "resume: get run %s", runID)
		}

		e, err := initEnv(ctx, run.Plan.Deliver)
		if err != nil {
			return err
		}
		defer e.Close()

		resumed, err := e.Orchestrator.Resume(ctx, runID)
		if resumed != nil {
			zap.L().Info("resume finished", zap.String("run_id", resumed.ID), zap.String("stage", string(resumed.Stage)))
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
