package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/prospect"
)

var (
	intentQuery string
	intentLimit int
)

var searchIntentCmd = &cobra.Command{
	Use:   "search-intent",
	Short: "Source leads from social posts that ask for a website",
	Long: "Searches LinkedIn posts, Instagram and Facebook through SerpApi and " +
		"records each new result as a lead with source social_search.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		if intentQuery == "" {
			return eris.New("--query is required")
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Importer.SearchIntent(ctx, tenant, prospect.IntentRequest{
			Query: intentQuery,
			Limit: intentLimit,
		})
		if err != nil {
			return eris.Wrap(err, "search-intent")
		}
		env.drain(ctx)
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	searchIntentCmd.Flags().StringVar(&intentQuery, "query", "", "intent phrase, e.g. \"preciso de um site\"")
	searchIntentCmd.Flags().IntVar(&intentLimit, "limit", 10, "max results to consider")
	rootCmd.AddCommand(searchIntentCmd)
}
