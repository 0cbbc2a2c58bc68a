package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/extract"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Extract Form D funding from each match's latest filing",
	Long:  "Downloads the most recent Form D of every match that is not rejected and has no result yet, and records the total amount sold.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "edgar")
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := env.Docs.LoadCompanies(ctx)
		if err != nil {
			return eris.Wrap(err, "load companies")
		}

		only, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		ex := extract.New(env.Edgar, env.Docs, env.Scorer, cfg.Search.BatchSize)
		sum, err := ex.Run(ctx, companies, extract.Options{Only: only, Limit: limit})
		formatFetchSummary(os.Stdout, sum)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		zap.L().Info("fetch complete",
			zap.Int("fetched", sum.Fetched),
			zap.Int("with_funding", sum.WithFunding),
			zap.Int("failed", sum.Failed),
		)
		return nil
	},
}

func formatFetchSummary(out io.Writer, s extract.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Considered:\t%d\n", s.Considered)
	_, _ = fmt.Fprintf(w, "Skipped:\t%d\n", s.Skipped)
	_, _ = fmt.Fprintf(w, "Fetched:\t%d\n", s.Fetched)
	_, _ = fmt.Fprintf(w, "  With funding:\t%d\n", s.WithFunding)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	if s.Aborted {
		_, _ = fmt.Fprintln(w, "Aborted:\tinterrupted; progress saved")
	}
	_ = w.Flush()
}

func init() {
	fetchCmd.Flags().String("company", "", "re-fetch only this slug")
	fetchCmd.Flags().Int("limit", 0, "max number of filings to fetch (0 = all)")
	rootCmd.AddCommand(fetchCmd)
}
