package directory

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/model"
)

var reviewHeader = []string{
	"slug", "name", "current_funding", "new_funding", "action",
	"approved", "confidence", "source", "note",
}

// ExportReview writes the review queue to path as .xlsx or .csv, one row
// per entry after a header row.
func ExportReview(q model.ReviewQueue, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows := make([][]any, 0, len(q.Companies)+1)
		header := make([]any, len(reviewHeader))
		for i, h := range reviewHeader {
			header[i] = h
		}
		rows = append(rows, header)
		for _, e := range q.Companies {
			rows = append(rows, []any{
				e.Slug, e.Name, e.CurrentFunding, e.NewFunding, string(e.Action),
				e.Approved, string(e.Confidence), e.Source, e.Note,
			})
		}
		return eris.Wrap(writeXLSX(path, "review", rows), "directory: export review")
	case ".csv":
		rows := make([][]string, 0, len(q.Companies)+1)
		rows = append(rows, reviewHeader)
		for _, e := range q.Companies {
			rows = append(rows, []string{
				e.Slug, e.Name, formatAmount(e.CurrentFunding), formatAmount(e.NewFunding), string(e.Action),
				formatBool(e.Approved), string(e.Confidence), e.Source, e.Note,
			})
		}
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "directory: create %s", path)
		}
		if err := writeCSV(f, rows); err != nil {
			f.Close() //nolint:errcheck
			return eris.Wrap(err, "directory: export review")
		}
		return eris.Wrapf(f.Close(), "directory: close %s", path)
	default:
		return eris.Wrapf(ErrUnsupportedFormat, "directory: export %s", path)
	}
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
