package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume follow-up events from AMQP without serving HTTP",
	Long: "Runs the event dispatcher against the AMQP queue: site analysis for new leads, " +
		"initial emails for analyzed leads, Salesforce handoff for interested leads, and sourced-lead notices.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "worker")
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("worker started", zap.String("queue", cfg.Queue.Queue))
		return env.Dispatcher.Run(ctx, env.Queue)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
