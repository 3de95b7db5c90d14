package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/prospect"
)

var (
	importCSV    string
	importXLSX   string
	importSource string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from a CSV or XLSX file",
	Long: "Parses rows from a CSV export or the first XLSX sheet, drops rows without a " +
		"company name and emails the tenant already has, and inserts the rest as new leads.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		rows, err := readImportRows()
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Importer.Import(ctx, tenant, rows, model.Source(importSource))
		if err != nil {
			return eris.Wrap(err, "import leads")
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func readImportRows() ([]model.PartialLead, error) {
	switch {
	case importCSV != "" && importXLSX != "":
		return nil, eris.New("use either --csv or --xlsx, not both")
	case importCSV != "":
		data, err := os.ReadFile(importCSV)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", importCSV)
		}
		return prospect.ParseCSV(string(data)), nil
	case importXLSX != "":
		return prospect.ParseXLSX(importXLSX)
	default:
		return nil, eris.New("--csv or --xlsx is required")
	}
}

func init() {
	importCmd.Flags().StringVar(&importCSV, "csv", "", "path to a CSV file with a header row")
	importCmd.Flags().StringVar(&importXLSX, "xlsx", "", "path to an XLSX workbook (first sheet)")
	importCmd.Flags().StringVar(&importSource, "source", string(model.SourceCSVImport), "lead source recorded on inserted rows")
	rootCmd.AddCommand(importCmd)
}
