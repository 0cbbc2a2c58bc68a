package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/monitoring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		lookback, _ := cmd.Flags().GetInt("lookback-hours")
		snap, err := monitoring.NewCollector(env.Docs).Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		formatStatus(os.Stdout, snap)
		return nil
	},
}

func formatStatus(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Companies:\t%d\n", s.Companies)
	_, _ = fmt.Fprintf(w, "  With funding:\t%d\n", s.WithFunding)
	_, _ = fmt.Fprintf(w, "  With funding date:\t%d\n", s.WithFundingDate)
	_, _ = fmt.Fprintf(w, "  Not searched:\t%d\n", s.NotSearched)
	_, _ = fmt.Fprintf(w, "Searched:\t%d\n", s.Searched)
	_, _ = fmt.Fprintf(w, "  Matched:\t%d\n", s.Matched)
	_, _ = fmt.Fprintf(w, "  Unmatched:\t%d\n", s.Unmatched)
	for _, c := range []model.Confidence{model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow} {
		_, _ = fmt.Fprintf(w, "  Confidence %s:\t%d\n", c, s.ByConfidence[c])
	}
	for _, st := range sortedKeys(s.ByStatus) {
		_, _ = fmt.Fprintf(w, "  Status %s:\t%d\n", st, s.ByStatus[st])
	}
	if s.LastSearch != nil {
		_, _ = fmt.Fprintf(w, "  Last run:\t%s\n", s.LastSearch.Format("2006-01-02 15:04"))
	}
	_, _ = fmt.Fprintf(w, "Results:\t%d\n", s.Results)
	_, _ = fmt.Fprintf(w, "  With amount:\t%d\n", s.ResultsWithAmount)
	_, _ = fmt.Fprintf(w, "  Pending fetch:\t%d\n", s.PendingFetch)
	_, _ = fmt.Fprintf(w, "Review queue:\t%d\n", s.Review.Total)
	_, _ = fmt.Fprintf(w, "  keep/add/update/skip:\t%d/%d/%d/%d\n", s.Review.Keep, s.Review.Add, s.Review.Update, s.Review.Skip)
	_, _ = fmt.Fprintf(w, "Failures (%dh):\t%d\n", s.LookbackHours, s.Failures)
	_, _ = fmt.Fprintf(w, "  Transient:\t%d\n", s.TransientFailures)
	for _, op := range sortedKeys(s.FailuresByOperation) {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", op, s.FailuresByOperation[op])
	}
	_ = w.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	statusCmd.Flags().Int("lookback-hours", 24, "window for counting failures (0 = all)")
	statusCmd.Flags().Bool("json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}
