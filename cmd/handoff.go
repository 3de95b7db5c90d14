package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var handoffLead string

var handoffCmd = &cobra.Command{
	Use:   "handoff",
	Short: "Hand an interested lead to Salesforce",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		if handoffLead == "" {
			return eris.New("--lead is required")
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Handoff.Run(ctx, tenant, handoffLead)
		if err != nil {
			return eris.Wrap(err, "handoff")
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	handoffCmd.Flags().StringVar(&handoffLead, "lead", "", "lead id")
	rootCmd.AddCommand(handoffCmd)
}
