package classify

import (
	"fmt"
	"strings"

	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/resolve"
)

// Category is the outcome of classifying one match.
type Category string

const (
	CategoryValid         Category = "valid"
	CategoryFalsePositive Category = "false_positive"
	CategoryFundAUM       Category = "fund_aum"
	CategoryNeedsReview   Category = "needs_review"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryValid, CategoryNeedsReview, CategoryFundAUM, CategoryFalsePositive}

// Invalidates reports whether the category rejects the match.
func (c Category) Invalidates() bool {
	return c == CategoryFalsePositive || c == CategoryFundAUM
}

// Status maps a category onto the persisted match status.
func (c Category) Status() model.ValidationStatus {
	switch c {
	case CategoryValid:
		return model.StatusApproved
	case CategoryNeedsReview:
		return model.StatusNeedsReview
	default:
		return model.StatusRejected
	}
}

// Verdict is the classification of one match.
type Verdict struct {
	Category Category
	Reason   string
	// Rule names the rule that decided.
	Rule string
}

// input is everything a rule may look at.
type input struct {
	slug        string
	match       model.Match
	segment     string
	companyNorm string
	entityNorm  string
}

// rule is one step of the cascade: the first rule whose check returns ok
// decides.
type rule struct {
	name  string
	check func(e *Engine, in input) (Verdict, bool)
}

// cascade runs after the override table, top to bottom.
var cascade = []rule{
	{"industry", (*Engine).industryRule},
	{"spv", (*Engine).spvRule},
	{"fund_aum", (*Engine).fundAUMRule},
	{"low_confidence", (*Engine).lowConfidenceRule},
	{"medium_confidence", (*Engine).mediumConfidenceRule},
	{"fund_prefix", (*Engine).fundPrefixRule},
}

// Engine classifies matches. It holds no mutable state.
type Engine struct {
	rules           *Ruleset
	norm            *resolve.Normalizer
	reviewThreshold float64
}

// NewEngine creates an Engine. reviewThreshold is the relative funding
// difference above which a review entry becomes an update.
func NewEngine(rules *Ruleset, norm *resolve.Normalizer, reviewThreshold float64) *Engine {
	return &Engine{rules: rules, norm: norm, reviewThreshold: reviewThreshold}
}

// Classify evaluates the match of slug. company may be nil when the slug is
// no longer in the directory. The result depends only on the arguments.
func (e *Engine) Classify(slug string, m model.Match, company *model.Company) Verdict {
	if reason, ok := e.rules.overrides[slug]; ok {
		return Verdict{Category: CategoryFalsePositive, Reason: "manual override: " + reason, Rule: "override"}
	}

	in := input{
		slug:       slug,
		match:      m,
		entityNorm: e.norm.Normalize(m.EntityName),
	}
	if company != nil {
		in.segment = segmentKey(company.Segment)
		in.companyNorm = e.norm.Normalize(company.Name)
	} else {
		in.companyNorm = e.norm.Normalize(strings.ReplaceAll(slug, "-", " "))
	}

	for _, r := range cascade {
		if v, ok := r.check(e, in); ok {
			v.Rule = r.name
			return v
		}
	}
	return Verdict{
		Category: CategoryValid,
		Reason:   fmt.Sprintf("%s confidence match", m.Confidence),
		Rule:     "default",
	}
}

func (e *Engine) industryRule(in input) (Verdict, bool) {
	if term := firstMatch(e.rules.industry, in.match.EntityName); term != "" {
		return Verdict{
			Category: CategoryFalsePositive,
			Reason:   fmt.Sprintf("entity name contains unrelated industry term %q", term),
		}, true
	}
	return Verdict{}, false
}

func (e *Engine) spvRule(in input) (Verdict, bool) {
	if term := firstMatch(e.rules.spv, in.match.EntityName); term != "" {
		return Verdict{
			Category: CategoryFalsePositive,
			Reason:   fmt.Sprintf("entity looks like an investment vehicle (%q)", term),
		}, true
	}
	return Verdict{}, false
}

func (e *Engine) fundAUMRule(in input) (Verdict, bool) {
	if !e.rules.aumSegments[in.segment] {
		return Verdict{}, false
	}
	if term := firstMatch(e.rules.fund, in.match.EntityName); term != "" {
		return Verdict{
			Category: CategoryFundAUM,
			Reason:   fmt.Sprintf("%s company matched a fund (%q); filing reports assets under management", in.segment, term),
		}, true
	}
	return Verdict{}, false
}

func (e *Engine) lowConfidenceRule(in input) (Verdict, bool) {
	if in.match.Confidence.Rank() <= model.ConfidenceLow.Rank() {
		return Verdict{Category: CategoryFalsePositive, Reason: "low confidence match"}, true
	}
	return Verdict{}, false
}

func (e *Engine) mediumConfidenceRule(in input) (Verdict, bool) {
	if in.match.Confidence == model.ConfidenceMedium {
		return Verdict{Category: CategoryNeedsReview, Reason: "medium confidence match needs a human decision"}, true
	}
	return Verdict{}, false
}

// fundPrefixRule accepts a high-confidence fund entity only when it carries
// the company's own name: the entity starts with the company name, or the
// company name starts with the part of the entity name before its first
// fund keyword.
func (e *Engine) fundPrefixRule(in input) (Verdict, bool) {
	cut := firstIndex(e.rules.fund, in.match.EntityName)
	if cut < 0 {
		return Verdict{}, false
	}
	base := e.norm.Normalize(in.match.EntityName[:cut])

	if hasWordPrefix(in.entityNorm, in.companyNorm) || hasWordPrefix(in.companyNorm, base) {
		return Verdict{
			Category: CategoryValid,
			Reason:   fmt.Sprintf("fund entity %q carries the company name", in.match.EntityName),
		}, true
	}
	return Verdict{
		Category: CategoryFalsePositive,
		Reason:   fmt.Sprintf("fund entity %q does not carry the company name", in.match.EntityName),
	}, true
}

// hasWordPrefix reports whether prefix is s or a leading run of whole words
// of s. An empty prefix never matches.
func hasWordPrefix(s, prefix string) bool {
	if prefix == "" {
		return false
	}
	return s == prefix || strings.HasPrefix(s, prefix+" ")
}
