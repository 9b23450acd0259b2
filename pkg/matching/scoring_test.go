package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_LevenshteinDistance(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"identical", "kitten", "kitten", 0},
		{"classic", "kitten", "sitting", 3},
		{"empty to word", "", "abc", 3},
		{"word to empty", "abc", "", 3},
		{"single substitution", "cat", "bat", 1},
		{"single insertion", "cat", "cart", 1},
		{"both empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.LevenshteinDistance(tt.a, tt.b))
		})
	}
}

func TestScorer_Levenshtein_Similarity(t *testing.T) {
	s := NewScorer()

	t.Run("identical strings score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Levenshtein("matsuoka", "matsuoka"))
	})

	t.Run("both empty score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Levenshtein("", ""))
	})

	t.Run("disjoint strings score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, s.Levenshtein("abc", "xyz"))
	})

	t.Run("distance scaled by longer string", func(t *testing.T) {
		// distance 3, max len 7
		assert.InDelta(t, 1.0-3.0/7.0, s.Levenshtein("kitten", "sitting"), 0.0001)
	})
}

func TestScorer_Jaro(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "martha", "martha", 1.0},
		{"both empty", "", "", 0.0},
		{"one empty", "martha", "", 0.0},
		{"transposition", "martha", "marhta", 0.9444},
		{"dixon", "dixon", "dicksonx", 0.7667},
		{"no common characters", "abc", "xyz", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Jaro(tt.a, tt.b), 0.001)
		})
	}
}

func TestScorer_JaroWinkler(t *testing.T) {
	s := NewScorer()

	t.Run("identical strings score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, s.JaroWinkler("smith", "smith"))
	})

	t.Run("prefix boost over plain jaro", func(t *testing.T) {
		jaro := s.Jaro("martha", "marhta")
		jw := s.JaroWinkler("martha", "marhta")
		assert.Greater(t, jw, jaro)
		// 3 char common prefix, 0.1 scaling
		assert.InDelta(t, jaro+3*0.1*(1.0-jaro), jw, 0.0001)
	})

	t.Run("prefix capped at four characters", func(t *testing.T) {
		jaro := s.Jaro("abcdefgh", "abcdexyz")
		jw := s.JaroWinkler("abcdefgh", "abcdexyz")
		assert.InDelta(t, jaro+4*0.1*(1.0-jaro), jw, 0.0001)
	})

	t.Run("dissimilar strings stay low", func(t *testing.T) {
		assert.Less(t, s.JaroWinkler("alpha", "omega"), 0.6)
	})
}

func TestScorer_Soundex(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"robert", "Robert", "R163"},
		{"rupert matches robert", "Rupert", "R163"},
		{"smith", "Smith", "S530"},
		{"smyth matches smith", "Smyth", "S530"},
		{"short name padded", "Lee", "L000"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Soundex(tt.in))
		})
	}
}

func TestScorer_ExactMatch(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 1.0, s.ExactMatch("Acme", "acme", false))
	assert.Equal(t, 0.0, s.ExactMatch("Acme", "acme", true))
	assert.Equal(t, 1.0, s.ExactMatch("acme", "acme", true))
}

func TestScorer_WeightedScore(t *testing.T) {
	s := NewScorer()

	t.Run("empty scores", func(t *testing.T) {
		assert.Equal(t, 0.0, s.WeightedScore(nil, nil))
	})

	t.Run("default weight is 1", func(t *testing.T) {
		scores := map[string]float64{"a": 1.0, "b": 0.0}
		assert.InDelta(t, 0.5, s.WeightedScore(scores, nil), 0.0001)
	})

	t.Run("weights applied", func(t *testing.T) {
		scores := map[string]float64{"name": 1.0, "email": 0.0}
		weights := map[string]float64{"name": 3.0, "email": 1.0}
		assert.InDelta(t, 0.75, s.WeightedScore(scores, weights), 0.0001)
	})
}
