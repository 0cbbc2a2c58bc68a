package resilience

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/formd-cli/internal/model"
)

// NewFailure builds an audit trail entry for a company that could not be
// processed by operation. The company stays eligible for the next run.
func NewFailure(slug, operation string, err error, now time.Time) model.Failure {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return model.Failure{
		ID:        uuid.NewString(),
		Slug:      slug,
		Operation: operation,
		Error:     msg,
		ErrorType: ClassifyError(err),
		CreatedAt: now.UTC(),
	}
}

// FailureFilter specifies criteria for listing the audit trail.
type FailureFilter struct {
	ErrorType string // "transient", "permanent", or "" for all
	Operation string
	Limit     int
}

// FilterFailures returns entries matching f, newest first.
func FilterFailures(all []model.Failure, f FailureFilter) []model.Failure {
	out := make([]model.Failure, 0, len(all))
	for _, entry := range all {
		if f.ErrorType != "" && entry.ErrorType != f.ErrorType {
			continue
		}
		if f.Operation != "" && entry.Operation != f.Operation {
			continue
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
