package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/formd-cli/internal/directory"
	"github.com/sells-group/formd-cli/internal/model"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect the funding review queue",
}

var reviewShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the review queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		action, _ := cmd.Flags().GetString("action")
		filter := reviewFilter{action: model.ReviewAction(action)}
		if raw, _ := cmd.Flags().GetString("confidence"); raw != "" {
			conf, err := model.ParseConfidence(raw)
			if err != nil {
				return eris.Wrap(err, "review show")
			}
			filter.minConfidence = conf
		}

		q, cleanup, err := loadReviewQueue(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		formatReviewQueue(os.Stdout, q, filter)
		return nil
	},
}

var reviewExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the review queue to a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("out")
		if path == "" {
			return eris.New("review export: --out is required")
		}

		q, cleanup, err := loadReviewQueue(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := directory.ExportReview(*q, path); err != nil {
			return eris.Wrap(err, "review export")
		}
		fmt.Fprintf(os.Stderr, "Wrote %d entries to %s\n", len(q.Companies), path)
		return nil
	},
}

func loadReviewQueue(cmd *cobra.Command) (*model.ReviewQueue, func(), error) {
	env, err := initEnv(cmd.Context(), cfg, "store")
	if err != nil {
		return nil, nil, err
	}
	q, err := env.Docs.LoadReview(cmd.Context())
	if err != nil {
		env.Close()
		return nil, nil, eris.Wrap(err, "load review queue")
	}
	if q == nil {
		env.Close()
		return nil, nil, eris.New("no review queue yet; run `formd validate --apply` first")
	}
	return q, env.Close, nil
}

// reviewFilter narrows the printed queue. Zero values match everything.
type reviewFilter struct {
	action        model.ReviewAction
	minConfidence model.Confidence
}

func (f reviewFilter) match(e model.ReviewEntry) bool {
	if f.action != "" && e.Action != f.action {
		return false
	}
	return f.minConfidence == "" || e.Confidence.Rank() >= f.minConfidence.Rank()
}

func formatReviewQueue(out io.Writer, q *model.ReviewQueue, filter reviewFilter) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tNAME\tCURRENT\tNEW\tACTION\tCONFIDENCE\tAPPROVED")
	_, _ = fmt.Fprintln(w, "----\t----\t-------\t---\t------\t----------\t--------")
	for _, e := range q.Companies {
		if !filter.match(e) {
			continue
		}
		approved := ""
		if e.Approved != nil {
			approved = fmt.Sprintf("%t", *e.Approved)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Slug, truncate(e.Name, 30), formatUSD(e.CurrentFunding), formatUSD(e.NewFunding),
			e.Action, e.Confidence, approved)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\nGenerated %s: %d entries (keep %d, add %d, update %d, skip %d)\n",
		q.Generated.Format("2006-01-02 15:04"), q.Summary.Total,
		q.Summary.Keep, q.Summary.Add, q.Summary.Update, q.Summary.Skip)
}

func init() {
	reviewShowCmd.Flags().String("action", "", "only show entries with this action (keep, add, update, skip)")
	reviewShowCmd.Flags().String("confidence", "", "only show entries at or above this confidence (high, medium, low)")
	reviewExportCmd.Flags().String("out", "", "output file (.xlsx or .csv)")
	reviewCmd.AddCommand(reviewShowCmd)
	reviewCmd.AddCommand(reviewExportCmd)
	rootCmd.AddCommand(reviewCmd)
}
