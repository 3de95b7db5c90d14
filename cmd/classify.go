package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	classifyLead  string
	classifyBatch bool
	classifyLimit int
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Analyze lead websites and assign a classification",
	Long: "Fetches a lead's website, scores it, and stores the classification. With --batch, " +
		"analyzes up to --limit leads that have a website but no analysis yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		if classifyLead == "" && !classifyBatch {
			return eris.New("--lead or --batch is required")
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		if classifyBatch {
			limit := classifyLimit
			if limit <= 0 {
				limit = cfg.Sitecheck.BatchLimit
			}
			res, err := env.Classifier.ClassifyBatch(ctx, tenant, limit)
			if err != nil {
				return eris.Wrap(err, "classify batch")
			}
			env.drain(ctx)
			return printJSON(cmd.OutOrStdout(), res)
		}

		res, err := env.Classifier.ClassifyLead(ctx, tenant, classifyLead)
		if err != nil {
			return eris.Wrapf(err, "classify lead %s", classifyLead)
		}
		env.drain(ctx)
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyLead, "lead", "", "lead id to analyze")
	classifyCmd.Flags().BoolVar(&classifyBatch, "batch", false, "analyze pending leads in bulk")
	classifyCmd.Flags().IntVar(&classifyLimit, "limit", 0, "max leads per batch (default from config)")
	rootCmd.AddCommand(classifyCmd)
}
