package resolve

import (
	"strings"

	"github.com/sells-group/formd-cli/internal/model"
)

// Score is the outcome of comparing our company name to a candidate name.
type Score struct {
	IsMatch    bool             `json:"is_match"`
	Confidence model.Confidence `json:"confidence"`
}

func tier(c model.Confidence) Score {
	return Score{IsMatch: c != model.ConfidenceNone, Confidence: c}
}

// Scorer assigns confidence tiers to name pairs.
type Scorer struct {
	norm *Normalizer
}

// NewScorer creates a Scorer using the given normalizer.
func NewScorer(n *Normalizer) *Scorer {
	if n == nil {
		n = NewNormalizer(nil)
	}
	return &Scorer{norm: n}
}

// Normalizer returns the normalizer the scorer compares with.
func (s *Scorer) Normalizer() *Normalizer { return s.norm }

// Score compares ours against candidate:
//  1. Either normalized form empty: none
//  2. Equal normalized forms: high
//  3. One is a prefix of the other (both longer than 2): high when the
//     word-count ratio is at least 0.5, otherwise medium
//  4. One contains the other: medium when the ratio is at least 0.5,
//     otherwise low
//  5. Token Jaccard: >= 0.6 high, > 0.4 medium, > 0.25 low, else none
//
// The word-count ratio is min/max over the raw names' whitespace-separated
// words, so a short name embedded in a long fund name ranks below a
// same-length match.
func (s *Scorer) Score(ours, candidate string) Score {
	a := s.norm.Normalize(ours)
	b := s.norm.Normalize(candidate)
	if a == "" || b == "" {
		return tier(model.ConfidenceNone)
	}

	if a == b {
		return tier(model.ConfidenceHigh)
	}

	ratio := wordCountRatio(ours, candidate)

	if len(a) > 2 && len(b) > 2 && (strings.HasPrefix(a, b) || strings.HasPrefix(b, a)) {
		if ratio >= 0.5 {
			return tier(model.ConfidenceHigh)
		}
		return tier(model.ConfidenceMedium)
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		if ratio >= 0.5 {
			return tier(model.ConfidenceMedium)
		}
		return tier(model.ConfidenceLow)
	}

	j := Jaccard(strings.Fields(a), strings.Fields(b))
	switch {
	case j >= 0.6:
		return tier(model.ConfidenceHigh)
	case j > 0.4:
		return tier(model.ConfidenceMedium)
	case j > 0.25:
		return tier(model.ConfidenceLow)
	default:
		return tier(model.ConfidenceNone)
	}
}

func wordCountRatio(a, b string) float64 {
	wa := len(strings.Fields(a))
	wb := len(strings.Fields(b))
	lo, hi := wa, wb
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == 0 {
		return 0
	}
	return float64(lo) / float64(hi)
}

// Jaccard returns |A∩B| / |A∪B| over two token sets. Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
