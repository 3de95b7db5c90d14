package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
)

var (
	decideLead string
	decideType string
	decideAI   bool
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Pick the template for a lead's next message and send it",
	Long: "Chooses the template for the lead's classification and message type, optionally " +
		"personalizes it with Claude, sends it when email is configured, and advances the lead's status.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		if decideLead == "" {
			return eris.New("--lead is required")
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		useAI := decideAI
		if !cmd.Flags().Changed("ai") {
			useAI = cfg.Outreach.UseAI
		}

		d, err := env.Selector.Decide(ctx, tenant, outreach.Request{
			LeadID:      decideLead,
			MessageType: model.MessageType(decideType),
			UseAI:       useAI,
		})
		if err != nil {
			return eris.Wrap(err, "decide")
		}
		return printJSON(cmd.OutOrStdout(), d)
	},
}

func init() {
	decideCmd.Flags().StringVar(&decideLead, "lead", "", "lead id")
	decideCmd.Flags().StringVar(&decideType, "type", "", "message type: initial, follow_up_1, or follow_up_2 (default initial)")
	decideCmd.Flags().BoolVar(&decideAI, "ai", false, "personalize with Claude (default from config)")
	rootCmd.AddCommand(decideCmd)
}
