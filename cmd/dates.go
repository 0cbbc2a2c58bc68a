package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/extract"
)

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "Set funding months from extracted filings",
	Long:  "Sets funding_date (YYYY-MM of the latest filing) on companies that have none, an accepted match and an extracted funding figure. Dry run unless --apply is given.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		in, err := loadClassifyInput(ctx, env)
		if err != nil {
			return err
		}

		changes := extract.PlanDates(in.Companies, in.Matches, in.Results)
		formatDateChanges(os.Stdout, changes)

		apply, _ := cmd.Flags().GetBool("apply")
		if !apply || len(changes) == 0 {
			if len(changes) > 0 {
				fmt.Fprintln(os.Stderr, "\nDry run: nothing written. Re-run with --apply to commit.")
			}
			return nil
		}

		n := extract.ApplyDates(in.Companies, changes)
		if err := env.Docs.SaveCompanies(ctx, in.Companies); err != nil {
			return eris.Wrap(err, "dates")
		}
		zap.L().Info("funding dates applied", zap.Int("updated", n))
		return nil
	},
}

func formatDateChanges(out io.Writer, changes []extract.DateChange) {
	if len(changes) == 0 {
		_, _ = fmt.Fprintln(out, "No funding dates to set.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tMONTH\tACCESSION")
	_, _ = fmt.Fprintln(w, "----\t-----\t---------")
	for _, c := range changes {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Slug, c.Month, c.Accession)
	}
	_ = w.Flush()
}

func init() {
	datesCmd.Flags().Bool("apply", false, "write the funding dates (default is a dry run)")
	rootCmd.AddCommand(datesCmd)
}
