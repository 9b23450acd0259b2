package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string {
	return &s
}

func TestMatcher_Score_Gates(t *testing.T) {
	m := NewMatcher(nil, 0)

	t.Run("nil entities", func(t *testing.T) {
		e := &models.Entity{EntityType: models.EntityTypePerson, Value: "Jane"}
		assert.Nil(t, m.Score(nil, e))
		assert.Nil(t, m.Score(e, nil))
		assert.Nil(t, m.Score(e, e))
	})

	t.Run("different types never match", func(t *testing.T) {
		e1 := &models.Entity{EntityType: models.EntityTypePerson, Value: "Acme"}
		e2 := &models.Entity{EntityType: models.EntityTypeCompany, Value: "Acme"}
		assert.Nil(t, m.Score(e1, e2))
	})

	t.Run("same id never matches", func(t *testing.T) {
		e1 := &models.Entity{ID: "x", EntityType: models.EntityTypePerson, Value: "Jane Doe"}
		e2 := &models.Entity{ID: "x", EntityType: models.EntityTypePerson, Value: "Jane Doe"}
		assert.Nil(t, m.Score(e1, e2))
	})

	t.Run("normalized-equal values are not surfaced", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypePerson, Value: "Jane Doe"}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypePerson, Value: "jane doe"}
		assert.Nil(t, m.Score(e1, e2))
	})

	t.Run("unrelated names fall below the minimum", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypePerson, Value: "Jane Doe"}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypePerson, Value: "Carlos Vega"}
		assert.Nil(t, m.Score(e1, e2))
	})
}

func TestMatcher_Score_Person(t *testing.T) {
	m := NewMatcher(nil, 0)

	t.Run("nickname plus shared last name", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypePerson, Value: "Robert Matsuoka"}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypePerson, Value: "Bob Matsuoka"}

		match := m.Score(e1, e2)
		require.NotNil(t, match)
		assert.InDelta(t, 0.7, match.Confidence, 0.0001)
		assert.True(t, match.HasFactor(models.MatchFactorNicknameMatch))
		assert.True(t, match.HasFactor(models.MatchFactorSimilarName))
	})

	t.Run("same email dominates and clamps at 1", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypePerson, Value: "John Smith", Context: strPtr("from john.smith@acme.com")}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypePerson, Value: "Jon Smith", Context: strPtr("cc john.smith@acme.com")}

		match := m.Score(e1, e2)
		require.NotNil(t, match)
		assert.Equal(t, 1.0, match.Confidence)
		assert.True(t, match.HasFactor(models.MatchFactorSameEmail))
	})

	t.Run("shared corporate domain is a weak signal", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypePerson, Value: "Priya Patel", Context: strPtr("priya@acme.com")}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypePerson, Value: "Priya R Patel", Context: strPtr("p.patel@acme.com")}

		match := m.Score(e1, e2)
		require.NotNil(t, match)
		assert.True(t, match.HasFactor(models.MatchFactorSameDomain))
	})

	t.Run("freemail domains are ignored", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypePerson, Value: "Ann Lee", Context: strPtr("ann.lee.music@gmail.com")}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypePerson, Value: "Bo Chen", Context: strPtr("bo.chen.42@gmail.com")}

		match := m.Score(e1, e2)
		if match != nil {
			assert.False(t, match.HasFactor(models.MatchFactorSameDomain))
		}
	})

	t.Run("name suffix stripped before comparison", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypePerson, Value: "Robert Matsuoka Jr."}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypePerson, Value: "Bob Matsuoka"}

		match := m.Score(e1, e2)
		require.NotNil(t, match)
		assert.True(t, match.HasFactor(models.MatchFactorNicknameMatch))
	})
}

func TestMatcher_Score_Company(t *testing.T) {
	m := NewMatcher(nil, 0)

	t.Run("acronym matches expansion", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypeCompany, Value: "IBM"}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypeCompany, Value: "International Business Machines"}

		match := m.Score(e1, e2)
		require.NotNil(t, match)
		assert.InDelta(t, 0.7, match.Confidence, 0.0001)
		assert.True(t, match.HasFactor(models.MatchFactorAbbreviationMatch))

		// symmetric
		reversed := m.Score(e2, e1)
		require.NotNil(t, reversed)
		assert.InDelta(t, match.Confidence, reversed.Confidence, 0.0001)
	})

	t.Run("similar company names", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypeCompany, Value: "Acme Corp"}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypeCompany, Value: "Acme Corporation"}

		match := m.Score(e1, e2)
		require.NotNil(t, match)
		assert.True(t, match.HasFactor(models.MatchFactorSimilarName))
		assert.InDelta(t, 0.5475, match.Confidence, 0.001)
	})

	t.Run("unrelated companies", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypeCompany, Value: "Acme Corp"}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypeCompany, Value: "Globex Industries"}
		assert.Nil(t, m.Score(e1, e2))
	})
}

func TestMatcher_Score_DefaultTypes(t *testing.T) {
	// generic types rely on name similarity alone, which tops out at
	// 0.5*jw, so exercise them with a lower minimum
	m := NewMatcher(nil, 0.45)

	t.Run("near-identical topic", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypeTopic, Value: "machine learning"}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypeTopic, Value: "machine learnings"}

		match := m.Score(e1, e2)
		require.NotNil(t, match)
		assert.True(t, match.HasFactor(models.MatchFactorSimilarName))
		assert.LessOrEqual(t, match.Confidence, 0.5)
	})

	t.Run("different topics", func(t *testing.T) {
		e1 := &models.Entity{ID: "a", EntityType: models.EntityTypeTopic, Value: "machine learning"}
		e2 := &models.Entity{ID: "b", EntityType: models.EntityTypeTopic, Value: "quarterly budget"}
		assert.Nil(t, m.Score(e1, e2))
	})
}
