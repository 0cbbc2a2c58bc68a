package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/classify"
	"github.com/sells-group/formd-cli/internal/resolve"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Classify matches and plan reverts of false positives",
	Long: "Runs the classification rules over every match and prints the full report: verdicts, funding dates to revert, " +
		"status changes, results to delete and the regenerated review queue. Nothing is written unless --apply is given.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		engine, err := newEngine(cfg.Classify.RulesFile, env.Scorer.Normalizer(), cfg.Classify.ReviewThreshold)
		if err != nil {
			return err
		}

		in, err := loadClassifyInput(ctx, env)
		if err != nil {
			return err
		}

		plan := engine.Plan(in, time.Now())
		formatValidationReport(os.Stdout, plan)

		apply, _ := cmd.Flags().GetBool("apply")
		if !apply {
			fmt.Fprintln(os.Stderr, "\nDry run: nothing written. Re-run with --apply to commit.")
			return nil
		}

		if err := classify.Commit(ctx, env.Docs, plan); err != nil {
			return eris.Wrap(err, "validate")
		}
		counts := plan.Counts()
		zap.L().Info("validation applied",
			zap.Int("valid", counts[classify.CategoryValid]),
			zap.Int("false_positive", counts[classify.CategoryFalsePositive]),
			zap.Int("fund_aum", counts[classify.CategoryFundAUM]),
			zap.Int("needs_review", counts[classify.CategoryNeedsReview]),
			zap.Int("reverts", len(plan.Reverts)),
			zap.Int("deletions", len(plan.Deletions)),
		)
		fmt.Fprintln(os.Stderr, "\nApplied.")
		return nil
	},
}

func newEngine(rulesFile string, norm *resolve.Normalizer, threshold float64) (*classify.Engine, error) {
	rules, err := classify.LoadRules(rulesFile)
	if err != nil {
		return nil, err
	}
	rs, err := rules.Compile()
	if err != nil {
		return nil, err
	}
	return classify.NewEngine(rs, norm, threshold), nil
}

func loadClassifyInput(ctx context.Context, e *env) (classify.Input, error) {
	companies, err := e.Docs.LoadCompanies(ctx)
	if err != nil {
		return classify.Input{}, eris.Wrap(err, "load companies")
	}
	matches, err := e.Docs.LoadMatches(ctx)
	if err != nil {
		return classify.Input{}, eris.Wrap(err, "load matches")
	}
	results, err := e.Docs.LoadResults(ctx)
	if err != nil {
		return classify.Input{}, eris.Wrap(err, "load results")
	}
	review, err := e.Docs.LoadReview(ctx)
	if err != nil {
		return classify.Input{}, eris.Wrap(err, "load review queue")
	}
	return classify.Input{Companies: companies, Matches: matches, Results: results, Review: review}, nil
}

// formatValidationReport writes the full categorized report to out.
func formatValidationReport(out io.Writer, p *classify.Plan) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	counts := p.Counts()
	_, _ = fmt.Fprintf(w, "Matches classified:\t%d\n", len(p.Decisions))
	for _, c := range classify.Categories {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", c, counts[c])
	}
	_ = w.Flush()

	for _, c := range classify.Categories {
		if counts[c] == 0 {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n== %s ==\n", c)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "SLUG\tENTITY\tCIK\tRULE\tREASON")
		for _, d := range p.Decisions {
			if d.Verdict.Category != c {
				continue
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				d.Slug, truncate(d.Entity, 40), d.CIK, d.Verdict.Rule, d.Verdict.Reason)
		}
		_ = w.Flush()
	}

	_, _ = fmt.Fprintf(out, "\n== funding dates to revert (%d) ==\n", len(p.Reverts))
	for _, r := range p.Reverts {
		_, _ = fmt.Fprintf(out, "  %s\t%s -> (none)\n", r.Slug, r.Month)
	}

	_, _ = fmt.Fprintf(out, "\n== status changes (%d) ==\n", len(p.StatusChanges))
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range p.StatusChanges {
		_, _ = fmt.Fprintf(w, "  %s\t%s -> %s\n", s.Slug, s.From, s.To)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n== results to delete (%d) ==\n", len(p.Deletions))
	for _, slug := range p.Deletions {
		_, _ = fmt.Fprintf(out, "  %s\n", slug)
	}

	q := p.Review.Summary
	_, _ = fmt.Fprintf(out, "\n== review queue (%d) ==\n", q.Total)
	_, _ = fmt.Fprintf(out, "  keep %d, add %d, update %d, skip %d\n", q.Keep, q.Add, q.Update, q.Skip)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func init() {
	validateCmd.Flags().Bool("apply", false, "write the planned changes (default is a dry run)")
	rootCmd.AddCommand(validateCmd)
}
