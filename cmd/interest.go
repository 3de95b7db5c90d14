package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/model"
)

var (
	interestLead    string
	interestMessage string
	interestChannel string
)

var interestCmd = &cobra.Command{
	Use:   "interest",
	Short: "Record a lead's reply and detect interest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		if interestLead == "" {
			return eris.New("--lead is required")
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Interest.Process(ctx, tenant, interestLead, interestMessage, model.Channel(interestChannel))
		if err != nil {
			return eris.Wrap(err, "process reply")
		}
		env.drain(ctx)
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	interestCmd.Flags().StringVar(&interestLead, "lead", "", "lead id the reply came from")
	interestCmd.Flags().StringVar(&interestMessage, "message", "", "reply text")
	interestCmd.Flags().StringVar(&interestChannel, "channel", string(model.ChannelEmail), "channel: email, whatsapp, or phone")
	rootCmd.AddCommand(interestCmd)
}
