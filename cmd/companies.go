package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/directory"
	"github.com/sells-group/formd-cli/internal/model"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage the company directory",
}

var companiesImportCmd = &cobra.Command{
	Use:   "import <file.csv|file.xlsx|file.json>",
	Short: "Replace the company directory from an export",
	Long:  "Reads companies from a CSV, XLSX or JSON export and replaces the stored directory. Funding months already set are kept when the export has none.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		imported, err := directory.Import(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "companies import")
		}
		if len(imported) == 0 {
			return eris.Errorf("companies import: no companies in %s", args[0])
		}

		existing, err := env.Docs.LoadCompanies(ctx)
		if err != nil {
			return eris.Wrap(err, "companies import")
		}
		merged, sum := directory.Merge(existing, imported)

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		formatMergeSummary(os.Stdout, sum)
		if dryRun {
			return nil
		}
		if err := env.Docs.SaveCompanies(ctx, merged); err != nil {
			return eris.Wrap(err, "companies import")
		}
		zap.L().Info("company directory imported",
			zap.String("file", args[0]),
			zap.Int("companies", len(merged)),
		)
		return nil
	},
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the company directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := env.Docs.LoadCompanies(ctx)
		if err != nil {
			return eris.Wrap(err, "companies list")
		}
		if len(companies) == 0 {
			fmt.Fprintln(os.Stderr, "No companies found.")
			return nil
		}
		formatCompanies(os.Stdout, companies)
		return nil
	},
}

func formatMergeSummary(out io.Writer, s directory.MergeSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Added:\t%d\n", s.Added)
	_, _ = fmt.Fprintf(w, "Updated:\t%d\n", s.Updated)
	_, _ = fmt.Fprintf(w, "Unchanged:\t%d\n", s.Unchanged)
	_, _ = fmt.Fprintf(w, "Removed:\t%d\n", s.Removed)
	_ = w.Flush()
}

func formatCompanies(out io.Writer, companies []model.Company) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tNAME\tSEGMENT\tFUNDING\tFUNDING_DATE")
	_, _ = fmt.Fprintln(w, "----\t----\t-------\t-------\t------------")
	for _, c := range companies {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.Slug, truncate(c.Name, 30), c.Segment, formatUSD(c.Funding), c.FundingDate)
	}
	_ = w.Flush()
}

// formatUSD renders an amount in whole dollars, or "-" when absent.
func formatUSD(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.0f", *v)
}

func init() {
	companiesImportCmd.Flags().Bool("dry-run", false, "report the changes without writing")
	companiesCmd.AddCommand(companiesImportCmd)
	companiesCmd.AddCommand(companiesListCmd)
	rootCmd.AddCommand(companiesCmd)
}
