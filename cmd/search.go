package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find the EDGAR issuer for each unsearched company",
	Long:  "Searches EDGAR full-text search for every company without a prior outcome, groups hits by CIK and records the best match. Progress is saved every batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "edgar")
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := loadDirectory(ctx, env)
		if err != nil {
			return err
		}

		only, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		orch := search.New(env.Edgar, env.Docs, env.Scorer, search.Config{
			BatchSize:  cfg.Search.BatchSize,
			MaxFilings: cfg.Search.MaxFilings,
		})
		sum, err := orch.Run(ctx, companies, search.Options{Only: only, Limit: limit})
		formatSearchSummary(os.Stdout, sum)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		zap.L().Info("search complete",
			zap.Int("searched", sum.Searched),
			zap.Int("matched", sum.Matched),
			zap.Int("failed", sum.Failed),
		)
		return nil
	},
}

// loadDirectory returns the company directory, or an error pointing at the
// import command when it is empty.
func loadDirectory(ctx context.Context, e *env) ([]model.Company, error) {
	companies, err := e.Docs.LoadCompanies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load companies")
	}
	if len(companies) == 0 {
		return nil, eris.New("company directory is empty; run `formd companies import <file>` first")
	}
	return companies, nil
}

func formatSearchSummary(out io.Writer, s search.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Considered:\t%d\n", s.Considered)
	_, _ = fmt.Fprintf(w, "Already done:\t%d\n", s.Skipped)
	_, _ = fmt.Fprintf(w, "Searched:\t%d\n", s.Searched)
	_, _ = fmt.Fprintf(w, "  Matched:\t%d\n", s.Matched)
	_, _ = fmt.Fprintf(w, "  Unmatched:\t%d\n", s.Unmatched)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	if s.Aborted {
		_, _ = fmt.Fprintln(w, "Aborted:\tEDGAR refused access (403); progress saved")
	}
	_ = w.Flush()
}

func init() {
	searchCmd.Flags().String("company", "", "re-search only this slug; a new match replaces the old one")
	searchCmd.Flags().Int("limit", 0, "max number of companies to search (0 = all)")
	rootCmd.AddCommand(searchCmd)
}
