package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/prospect"
)

var (
	searchQuery      string
	searchLocation   string
	searchLimit      int
	searchSiteFilter string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Source new leads from Google Places",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		if searchQuery == "" {
			return eris.New("--query is required")
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Importer.Search(ctx, tenant, prospect.SearchRequest{
			Query:      searchQuery,
			Location:   searchLocation,
			Limit:      searchLimit,
			SiteFilter: prospect.SiteFilter(searchSiteFilter),
		})
		if err != nil {
			return eris.Wrap(err, "search")
		}
		env.drain(ctx)
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchQuery, "query", "", "business type or keywords, e.g. \"padarias\"")
	searchCmd.Flags().StringVar(&searchLocation, "location", "", "city or region appended to the query")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "max places to consider")
	searchCmd.Flags().StringVar(&searchSiteFilter, "site-filter", string(prospect.SiteFilterAll), "all, with_site, or without_site")
	rootCmd.AddCommand(searchCmd)
}
