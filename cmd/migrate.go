package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/store"
)

var (
	migrateSeed      bool
	migrateTemplates string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply store migrations and optionally seed email templates",
	Long: "Migrations run on every command; this one exists to run them alone. --seed upserts the " +
		"built-in default templates, and --templates loads a tenant's own YAML template file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		seeded := 0
		if migrateSeed {
			defaults, err := store.DefaultTemplates()
			if err != nil {
				return err
			}
			if err := env.Store.UpsertTemplates(ctx, defaults); err != nil {
				return eris.Wrap(err, "seed default templates")
			}
			seeded += len(defaults)
		}

		if migrateTemplates != "" {
			tenant, err := requireTenant()
			if err != nil {
				return err
			}
			templates, err := store.LoadTemplates(migrateTemplates, tenant)
			if err != nil {
				return err
			}
			if err := env.Store.UpsertTemplates(ctx, templates); err != nil {
				return eris.Wrap(err, "load tenant templates")
			}
			seeded += len(templates)
		}

		zap.L().Info("migrations applied", zap.String("driver", cfg.Store.Driver), zap.Int("templates", seeded))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "upsert the built-in default templates")
	migrateCmd.Flags().StringVar(&migrateTemplates, "templates", "", "YAML template file to load for --tenant")
	rootCmd.AddCommand(migrateCmd)
}
