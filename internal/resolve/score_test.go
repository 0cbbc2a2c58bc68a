package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/formd-cli/internal/model"
)

func TestScore_Tiers(t *testing.T) {
	s := NewScorer(nil)

	tests := []struct {
		name      string
		ours      string
		candidate string
		want      model.Confidence
	}{
		{"exact after normalization", "Brex", "BREX INC", model.ConfidenceHigh},
		{"prefix with close word count", "Acme Robotics", "Acme Robotics Fund", model.ConfidenceHigh},
		{"prefix with distant word count", "Ramp", "RAMp Sports LLC", model.ConfidenceMedium},
		{"prefix long candidate", "Mercury", "Mercury Financial Technologies Inc", model.ConfidenceMedium},
		{"containment close word count", "Lens Works", "Optic Lens Works", model.ConfidenceMedium},
		{"containment distant word count", "Ramp", "Tramp Sports Club", model.ConfidenceLow},
		{"short name skips prefix rule", "AB", "AB Foods", model.ConfidenceMedium},
		{"jaccard reordered", "Acme Robotics", "Robotics Acme", model.ConfidenceHigh},
		{"jaccard half overlap", "Blue River Analytics", "Blue River Robotics", model.ConfidenceMedium},
		{"jaccard third overlap", "Blue River", "Blue Ocean", model.ConfidenceLow},
		{"unrelated", "Plaid", "Stripe", model.ConfidenceNone},
		{"empty after normalization", "Inc", "Brex", model.ConfidenceNone},
		{"both empty", "", "", model.ConfidenceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.ours, tt.candidate)
			assert.Equal(t, tt.want, got.Confidence)
			assert.Equal(t, tt.want != model.ConfidenceNone, got.IsMatch)
		})
	}
}

func TestScore_BrexHigh(t *testing.T) {
	got := NewScorer(nil).Score("Brex", "BREX INC")
	assert.Equal(t, Score{IsMatch: true, Confidence: model.ConfidenceHigh}, got)
}

func TestScore_RampSportsAtMostMedium(t *testing.T) {
	got := NewScorer(nil).Score("Ramp", "RAMp Sports LLC")
	assert.True(t, got.IsMatch)
	assert.LessOrEqual(t, got.Confidence.Rank(), model.ConfidenceMedium.Rank())
}

func TestScore_Symmetric(t *testing.T) {
	s := NewScorer(nil)
	pairs := [][2]string{
		{"Ramp", "RAMp Sports LLC"},
		{"Blue River Analytics", "Blue River Robotics"},
		{"Lens Works", "Optic Lens Works"},
	}
	for _, p := range pairs {
		assert.Equal(t, s.Score(p[0], p[1]), s.Score(p[1], p[0]), "%v", p)
	}
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.InDelta(t, 1.0/3.0, Jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
	assert.Equal(t, 1.0, Jaccard([]string{"a", "a", "b"}, []string{"b", "a"}))
}
