package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/resilience"
)

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List the failure audit trail",
	Long:  "Lists items that search or fetch could not process, newest first, so they can be retried with --company.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		all, err := env.Docs.LoadFailures(ctx)
		if err != nil {
			return eris.Wrap(err, "failures")
		}

		errType, _ := cmd.Flags().GetString("type")
		op, _ := cmd.Flags().GetString("operation")
		limit, _ := cmd.Flags().GetInt("limit")
		entries := resilience.FilterFailures(all, resilience.FailureFilter{
			ErrorType: errType,
			Operation: op,
			Limit:     limit,
		})

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No failures found.")
			return nil
		}
		formatFailures(os.Stdout, entries)
		return nil
	},
}

func formatFailures(out io.Writer, entries []model.Failure) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tOPERATION\tTYPE\tCREATED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t----\t---------\t----\t-------\t-----")
	for _, f := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(f.ID),
			f.Slug,
			f.Operation,
			f.ErrorType,
			f.CreatedAt.Format("2006-01-02 15:04"),
			truncate(f.Error, 80),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	failuresCmd.Flags().String("type", "", "filter by error type (transient, permanent)")
	failuresCmd.Flags().String("operation", "", "filter by operation (search, fetch)")
	failuresCmd.Flags().Int("limit", 50, "max number of entries to display")
	rootCmd.AddCommand(failuresCmd)
}
