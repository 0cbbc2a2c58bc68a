package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Empty(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("   "))
}

func TestNormalize_CaseAndPunctuation(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, n.Normalize("Brex, Inc."), n.Normalize("BREX INC"))
	assert.Equal(t, "brex", n.Normalize("Brex, Inc."))
}

func TestNormalize_StripLLC(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, "acme advisors", n.Normalize("Acme Advisors LLC"))
	assert.Equal(t, "acme advisors", n.Normalize("Acme Advisors L.L.C."))
}

func TestNormalize_StripSuffixAnywhere(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, "acme robotics", n.Normalize("Acme Holdings Robotics Corp"))
	assert.Equal(t, "ramp", n.Normalize("Ramp Capital Partners, L.P."))
}

func TestNormalize_WholeWordsOnly(t *testing.T) {
	n := NewNormalizer(nil)
	// "incline" and "cobalt" contain suffix letters but are not suffix words.
	assert.Equal(t, "incline cobalt", n.Normalize("Incline Cobalt Inc"))
}

func TestNormalize_WordBreaks(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, "smith jones", n.Normalize("Smith & Jones"))
	assert.Equal(t, "wells fargo", n.Normalize("Wells-Fargo"))
	assert.Equal(t, "joes advisors", n.Normalize("Joe's Advisors"))
}

func TestNormalize_CollapseSpaces(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, "acme robotics", n.Normalize("  Acme   Robotics \t "))
}

func TestNormalize_FoldsDiacritics(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, "cafe equipe", n.Normalize("Café Équipe"))
}

func TestNormalize_OnlySuffixes(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, "", n.Normalize("Holdings Inc"))
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer(nil)
	inputs := []string{
		"Brex, Inc.",
		"Acme Advisors L.L.C.",
		"RAMp Sports LLC",
		"Café Équipe",
		"Smith & Jones - West/Coast",
		"Foo l.l.c inc",
		"İstanbul Ventures",
		"",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestNewNormalizer_CustomVocabulary(t *testing.T) {
	n := NewNormalizer([]string{"  GmbH ", "A.G."})
	assert.Equal(t, "siemens", n.Normalize("Siemens AG"))
	assert.Equal(t, "bosch", n.Normalize("Bosch GmbH"))
	// Default words are not included once a vocabulary is supplied.
	assert.Equal(t, "brex inc", n.Normalize("Brex Inc"))
	assert.Equal(t, "bosch", n.Normalize("BOSCH GMBH"))
}
