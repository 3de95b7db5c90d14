package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
)

var (
	cfg      *config.Config
	tenantID string
)

var rootCmd = &cobra.Command{
	Use:   "prospect",
	Short: "Lead prospecting and outreach pipeline",
	Long: "Imports and sources leads, grades their websites, sends sequenced outreach emails, " +
		"detects interest in replies, and hands interested leads to Salesforce.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// requireTenant returns the --tenant flag value or an error when it is unset.
func requireTenant() (string, error) {
	if tenantID == "" {
		return "", eris.New("--tenant is required")
	}
	return tenantID, nil
}

// printJSON writes v to out as indented JSON.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write output")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "tenant id every operation is scoped to")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
