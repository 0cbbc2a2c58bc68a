// Package classify validates search matches with an ordered rule cascade
// and plans the resulting store mutations.
package classify

import (
	"bytes"
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rules is the YAML form of the classification configuration.
type Rules struct {
	Overrides   map[string]string `yaml:"overrides"`
	Industry    []string          `yaml:"industry"`
	SPV         []string          `yaml:"spv"`
	Fund        []string          `yaml:"fund"`
	AUMSegments []string          `yaml:"aum_segments"`
}

// DefaultRules returns the built-in rules.
func DefaultRules() (*Rules, error) {
	return parseRules(defaultRules)
}

// LoadRules reads rules from path, or returns the built-in rules when path
// is empty. A rules file replaces the defaults entirely.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read rules %s", path)
	}
	return parseRules(data)
}

func parseRules(data []byte) (*Rules, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var r Rules
	if err := dec.Decode(&r); err != nil {
		return nil, eris.Wrap(err, "classify: parse rules")
	}
	return &r, nil
}

// Ruleset is the compiled, read-only form of Rules.
type Ruleset struct {
	overrides   map[string]string
	industry    []*regexp.Regexp
	spv         []*regexp.Regexp
	fund        []*regexp.Regexp
	aumSegments map[string]bool
}

// Compile validates every pattern and builds a Ruleset.
func (r *Rules) Compile() (*Ruleset, error) {
	rs := &Ruleset{
		overrides:   make(map[string]string, len(r.Overrides)),
		aumSegments: make(map[string]bool, len(r.AUMSegments)),
	}
	for slug, reason := range r.Overrides {
		rs.overrides[slug] = reason
	}
	for _, s := range r.AUMSegments {
		rs.aumSegments[segmentKey(s)] = true
	}

	var err error
	if rs.industry, err = compileAll("industry", r.Industry); err != nil {
		return nil, err
	}
	if rs.spv, err = compileAll("spv", r.SPV); err != nil {
		return nil, err
	}
	if rs.fund, err = compileAll("fund", r.Fund); err != nil {
		return nil, err
	}
	return rs, nil
}

// DefaultRuleset compiles the built-in rules.
func DefaultRuleset() (*Ruleset, error) {
	r, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	return r.Compile()
}

func compileAll(group string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, eris.Wrapf(err, "classify: %s pattern %q", group, p)
		}
		out = append(out, re)
	}
	return out, nil
}

// segmentKey folds "Wealth Management" and "wealth_management" together.
func segmentKey(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}

func firstMatch(res []*regexp.Regexp, s string) string {
	for _, re := range res {
		if m := re.FindString(s); m != "" {
			return m
		}
	}
	return ""
}

// firstIndex returns where the earliest match of any pattern starts in s, or -1.
func firstIndex(res []*regexp.Regexp, s string) int {
	best := -1
	for _, re := range res {
		if loc := re.FindStringIndex(s); loc != nil && (best < 0 || loc[0] < best) {
			best = loc[0]
		}
	}
	return best
}
