package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/pipeline"
)

var (
	runLimit int
	runAI    bool
)

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"auto-prospect"},
	Short:   "Run batch outreach over new contactable leads",
	Long: "Loads new leads with an email, analyzes any without a classification, skips those " +
		"already contacted, and sends each one its initial email.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tenant, err := requireTenant()
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		limit := runLimit
		if limit <= 0 {
			limit = cfg.Outreach.BatchLimit
		}
		useAI := runAI
		if !cmd.Flags().Changed("ai") {
			useAI = cfg.Outreach.UseAI
		}

		res, err := env.Orchestrator.Run(ctx, tenant, pipeline.RunOptions{Limit: limit, UseAI: useAI})
		if err != nil {
			return eris.Wrap(err, "prospect run")
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max leads to process (default from config)")
	runCmd.Flags().BoolVar(&runAI, "ai", false, "personalize with Claude (default from config)")
	rootCmd.AddCommand(runCmd)
}
