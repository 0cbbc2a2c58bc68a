package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Confidence is the discrete match-quality tier of an entity match.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank orders tiers: none < low < medium < high. Unknown values rank as none.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	default:
		return 0
	}
}

// Min returns the lower of two tiers.
func (c Confidence) Min(other Confidence) Confidence {
	if other.Rank() < c.Rank() {
		return other
	}
	return c
}

// ParseConfidence converts a string into a Confidence.
func ParseConfidence(s string) (Confidence, error) {
	switch Confidence(s) {
	case ConfidenceNone, ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return Confidence(s), nil
	default:
		return ConfidenceNone, eris.Errorf("unknown confidence: %q (valid: high, medium, low, none)", s)
	}
}

// ValidationStatus records the classification outcome persisted on a Match.
type ValidationStatus string

const (
	StatusUnset       ValidationStatus = ""
	StatusApproved    ValidationStatus = "approved"
	StatusRejected    ValidationStatus = "rejected"
	StatusNeedsReview ValidationStatus = "needs_review"
)

// String returns "unset" for the zero value.
func (s ValidationStatus) String() string {
	if s == StatusUnset {
		return "unset"
	}
	return string(s)
}

// Filing references one EDGAR submission.
type Filing struct {
	AccessionNumber string `json:"accession_number"`
	FilingDate      string `json:"filing_date"` // YYYY-MM-DD
	FormType        string `json:"form_type"`
}

// Month returns the YYYY-MM prefix of the filing date, or "" when the date
// is too short to carry one.
func (f Filing) Month() string {
	if len(f.FilingDate) < 7 {
		return ""
	}
	return f.FilingDate[:7]
}

// Match is the best issuer found for a company by the search phase.
type Match struct {
	EntityName       string           `json:"entity_name"`
	CIK              string           `json:"cik"`
	Confidence       Confidence       `json:"confidence"`
	Filings          []Filing         `json:"filings"`
	Status           ValidationStatus `json:"validation_status,omitempty"`
	ValidationReason string           `json:"validation_reason,omitempty"`
	SearchedAt       time.Time        `json:"searched_at"`
}

// Latest returns the most recent filing, if any.
func (m Match) Latest() (Filing, bool) {
	if len(m.Filings) == 0 {
		return Filing{}, false
	}
	return m.Filings[0], true
}

// MatchMetadata summarizes the Matches store.
type MatchMetadata struct {
	Searched  int        `json:"searched"`
	Matched   int        `json:"matched"`
	Unmatched int        `json:"unmatched"`
	LastRun   *time.Time `json:"last_run,omitempty"`
}

// MatchIndex is the Matches store document.
type MatchIndex struct {
	Metadata  MatchMetadata    `json:"metadata"`
	Matches   map[string]Match `json:"matches"`
	Unmatched []string         `json:"unmatched"`
}

// NewMatchIndex returns an empty, ready-to-use index.
func NewMatchIndex() *MatchIndex {
	return &MatchIndex{Matches: map[string]Match{}, Unmatched: []string{}}
}

// Ensure initializes nil collections after decoding a sparse document.
func (m *MatchIndex) Ensure() {
	if m.Matches == nil {
		m.Matches = map[string]Match{}
	}
	if m.Unmatched == nil {
		m.Unmatched = []string{}
	}
}

// Done reports whether slug has already been searched.
func (m *MatchIndex) Done(slug string) bool {
	if _, ok := m.Matches[slug]; ok {
		return true
	}
	for _, s := range m.Unmatched {
		if s == slug {
			return true
		}
	}
	return false
}

// Record stores a fresh match for slug and clears any unmatched entry.
// Validation status carries over when the issuer is unchanged. It reports
// whether an earlier match for a different issuer was replaced.
func (m *MatchIndex) Record(slug string, next Match) bool {
	prev, had := m.Matches[slug]
	sameIssuer := had && prev.CIK == next.CIK
	if sameIssuer {
		next.Status = prev.Status
		next.ValidationReason = prev.ValidationReason
	}
	m.Matches[slug] = next

	out := m.Unmatched[:0]
	for _, s := range m.Unmatched {
		if s != slug {
			out = append(out, s)
		}
	}
	m.Unmatched = out
	return had && !sameIssuer
}

// MarkUnmatched records a search for slug that found nothing. An existing
// match is never dropped.
func (m *MatchIndex) MarkUnmatched(slug string) {
	if m.Done(slug) {
		return
	}
	m.Unmatched = append(m.Unmatched, slug)
}

// Refresh recomputes metadata counts.
func (m *MatchIndex) Refresh(now time.Time) {
	m.Metadata.Matched = len(m.Matches)
	m.Metadata.Unmatched = len(m.Unmatched)
	m.Metadata.Searched = m.Metadata.Matched + m.Metadata.Unmatched
	m.Metadata.LastRun = &now
}
