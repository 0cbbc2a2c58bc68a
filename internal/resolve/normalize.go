// Package resolve normalizes company names and scores candidate issuer names
// against them.
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSuffixes lists corporate-entity words dropped during normalization.
// Entries are compared against lowercase, punctuation-free tokens, so
// "L.L.C." and "LLC" both hit "llc".
func DefaultSuffixes() []string {
	return []string{
		"inc", "incorporated",
		"llc", "pllc",
		"corp", "corporation",
		"co", "company",
		"ltd", "limited",
		"lp", "llp",
		"plc", "pbc", "gmbh",
		"holding", "holdings",
		"group",
		"technology", "technologies",
		"capital",
		"ventures",
		"partners",
	}
}

// Normalizer turns free-text entity names into comparable tokens. It is
// immutable once built and safe for concurrent use.
type Normalizer struct {
	suffixes map[string]struct{}
}

// NewNormalizer builds a Normalizer from a suffix vocabulary. A nil or empty
// vocabulary falls back to DefaultSuffixes.
func NewNormalizer(suffixes []string) *Normalizer {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes()
	}
	set := make(map[string]struct{}, len(suffixes))
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return &Normalizer{suffixes: set}
}

// Normalize standardizes an entity name by:
//  1. Lowercasing and folding diacritics
//  2. Treating '-', '/', '&' and '_' as word breaks
//  3. Stripping every other non-alphanumeric character
//  4. Dropping suffix words (whole tokens, anywhere in the name)
//  5. Collapsing whitespace
//
// The result is idempotent: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(name string) string {
	return strings.Join(n.Tokens(name), " ")
}

// Tokens returns the normalized word list for name.
func (n *Normalizer) Tokens(name string) []string {
	folded := fold(strings.ToLower(name))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r), r == '-', r == '/', r == '&', r == '_':
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, f := range fields {
		if _, ok := n.suffixes[f]; ok {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
