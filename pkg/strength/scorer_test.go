package strength

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeRelationshipStore struct {
	byEntity map[string][]models.InferredRelationship
	all      []models.InferredRelationship
	err      error
}

func (f *fakeRelationshipStore) GetEntityRelationships(ctx context.Context, userID, entityType, value string) ([]models.InferredRelationship, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byEntity[entityType+"/"+value], nil
}

func (f *fakeRelationshipStore) GetAllRelationships(ctx context.Context, userID string, limit int) ([]models.InferredRelationship, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.all, nil
}

type fakeStrengthWriter struct {
	written map[string]float64
}

func (f *fakeStrengthWriter) SetEntityStrength(ctx context.Context, userID, entityType, value string, strength float64) error {
	if f.written == nil {
		f.written = make(map[string]float64)
	}
	f.written[entityType+"/"+value] = strength
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func emailRel(to string, daysAgo float64, confidence float64) models.InferredRelationship {
	return models.InferredRelationship{
		ID:               "rel-" + to,
		UserID:           "u1",
		FromEntityType:   models.EntityTypePerson,
		FromEntityValue:  "me",
		ToEntityType:     models.EntityTypePerson,
		ToEntityValue:    to,
		RelationshipType: "CORRESPONDS_WITH",
		Confidence:       confidence,
		SourceID:         "email-thread-42",
		InferredAt:       fixedNow().Add(-time.Duration(daysAgo*24) * time.Hour),
	}
}

func calendarRel(to string, daysAgo float64, confidence float64) models.InferredRelationship {
	rel := emailRel(to, daysAgo, confidence)
	rel.RelationshipType = "MEETS_WITH"
	rel.SourceID = "gcal-event-9"
	return rel
}

func newTestScorer(store RelationshipStore, writer StrengthWriter) *Scorer {
	s := NewScorer(store, writer, testLogger(), DefaultConfig())
	s.now = fixedNow
	return s
}

func TestRecencyScore(t *testing.T) {
	tests := []struct {
		name     string
		days     float64
		halfLife float64
		want     float64
	}{
		{"same day", 0, 30, 1.0},
		{"one half-life", 30, 30, 0.5},
		{"two half-lives", 60, 30, 0.25},
		{"half of a half-life", 15, 30, math.Pow(0.5, 0.5)},
		{"negative clamps to 1", -5, 30, 1.0},
		{"zero half-life", 10, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RecencyScore(tt.days, tt.halfLife), 0.0001)
		})
	}
}

func TestNormalizeFrequency(t *testing.T) {
	assert.Equal(t, 0.5, NormalizeFrequency(10, 20))
	assert.Equal(t, 1.0, NormalizeFrequency(100, 20))
	assert.Equal(t, 1.0, NormalizeFrequency(20, 20))
	assert.Equal(t, 0.0, NormalizeFrequency(0, 20))
	assert.Equal(t, 0.0, NormalizeFrequency(5, 0))
}

func TestScorer_CalculateRelationshipStrength(t *testing.T) {
	t.Run("no relationships scores zero", func(t *testing.T) {
		scorer := newTestScorer(&fakeRelationshipStore{}, nil)

		score, err := scorer.CalculateRelationshipStrength(context.Background(), "u1", models.EntityTypePerson, "nobody")
		require.NoError(t, err)
		assert.Equal(t, 0.0, score.Strength)
		assert.Equal(t, 0, score.InteractionCount)
		assert.True(t, math.IsInf(score.Factors.RecencyDays, 1))
		assert.Equal(t, 0.5, score.Factors.Sentiment)
	})

	t.Run("ten emails over two months", func(t *testing.T) {
		// evenly spread: oldest 60 days ago, newest today
		rels := make([]models.InferredRelationship, 0, 10)
		for i := 0; i < 10; i++ {
			rels = append(rels, emailRel("alice", float64(60-i*6), 0.8))
		}
		rels[9].InferredAt = fixedNow()

		store := &fakeRelationshipStore{byEntity: map[string][]models.InferredRelationship{
			models.EntityTypePerson + "/alice": rels,
		}}
		scorer := newTestScorer(store, nil)

		score, err := scorer.CalculateRelationshipStrength(context.Background(), "u1", models.EntityTypePerson, "alice")
		require.NoError(t, err)

		assert.Equal(t, 10, score.InteractionCount)
		assert.InDelta(t, 5.0, score.Factors.EmailFrequency, 0.0001)
		assert.InDelta(t, 0.0, score.Factors.CalendarFrequency, 0.0001)
		assert.InDelta(t, 0.0, score.Factors.RecencyDays, 0.0001)
		assert.InDelta(t, 0.8, score.Factors.Sentiment, 0.0001)

		// 0.3*(5/20) + 0.3*0 + 0.25*1 + 0.15*0.8
		assert.InDelta(t, 0.445, score.Strength, 0.0001)
		assert.Equal(t, fixedNow(), score.LastInteraction)
	})

	t.Run("dormant thread keeps its frequency", func(t *testing.T) {
		// ten emails between 90 and 60 days ago: a one month span, so
		// frequency stays 10/month and only recency reflects the silence
		rels := make([]models.InferredRelationship, 0, 10)
		for i := 0; i < 10; i++ {
			rels = append(rels, emailRel("erin", 90-float64(i)*30.0/9.0, 0.8))
		}

		store := &fakeRelationshipStore{byEntity: map[string][]models.InferredRelationship{
			models.EntityTypePerson + "/erin": rels,
		}}
		scorer := newTestScorer(store, nil)

		score, err := scorer.CalculateRelationshipStrength(context.Background(), "u1", models.EntityTypePerson, "erin")
		require.NoError(t, err)

		assert.InDelta(t, 10.0, score.Factors.EmailFrequency, 0.0001)
		assert.InDelta(t, 60.0, score.Factors.RecencyDays, 0.0001)

		// 0.3*(10/20) + 0.3*0 + 0.25*0.25 + 0.15*0.8
		assert.InDelta(t, 0.3325, score.Strength, 0.0001)
	})

	t.Run("edges not touching the entity are ignored", func(t *testing.T) {
		rels := []models.InferredRelationship{
			emailRel("alice", 0, 0.8),
			emailRel("zoe", 0, 1.0),
		}
		store := &fakeRelationshipStore{byEntity: map[string][]models.InferredRelationship{
			models.EntityTypePerson + "/alice": rels,
		}}
		scorer := newTestScorer(store, nil)

		score, err := scorer.CalculateRelationshipStrength(context.Background(), "u1", models.EntityTypePerson, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, score.InteractionCount)
		assert.InDelta(t, 0.8, score.Factors.Sentiment, 0.0001)
	})

	t.Run("weights are normalized by their sum", func(t *testing.T) {
		rels := make([]models.InferredRelationship, 0, 10)
		for i := 0; i < 10; i++ {
			rels = append(rels, emailRel("frank", 0, 1.0))
		}
		store := &fakeRelationshipStore{byEntity: map[string][]models.InferredRelationship{
			models.EntityTypePerson + "/frank": rels,
		}}
		scorer := NewScorer(store, nil, testLogger(), Config{
			HalfLifeDays:        30,
			MaxEmailPerMonth:    20,
			MaxCalendarPerMonth: 10,
			EmailWeight:         1,
			CalendarWeight:      1,
			RecencyWeight:       1,
			SentimentWeight:     1,
		})
		scorer.now = fixedNow

		score, err := scorer.CalculateRelationshipStrength(context.Background(), "u1", models.EntityTypePerson, "frank")
		require.NoError(t, err)

		// equal weights average the four components: (0.5 + 0 + 1 + 1) / 4
		assert.InDelta(t, 0.625, score.Strength, 0.0001)
	})

	t.Run("calendar sources classified separately", func(t *testing.T) {
		rels := []models.InferredRelationship{
			emailRel("bob", 0, 1.0),
			calendarRel("bob", 0, 1.0),
			calendarRel("bob", 5, 1.0),
		}
		store := &fakeRelationshipStore{byEntity: map[string][]models.InferredRelationship{
			models.EntityTypePerson + "/bob": rels,
		}}
		scorer := newTestScorer(store, nil)

		score, err := scorer.CalculateRelationshipStrength(context.Background(), "u1", models.EntityTypePerson, "bob")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score.Factors.EmailFrequency, 0.0001)
		assert.InDelta(t, 2.0, score.Factors.CalendarFrequency, 0.0001)
	})

	t.Run("saturated recent contact scores 1", func(t *testing.T) {
		rels := make([]models.InferredRelationship, 0, 30)
		for i := 0; i < 20; i++ {
			rels = append(rels, emailRel("carol", 0, 1.0))
		}
		for i := 0; i < 10; i++ {
			rels = append(rels, calendarRel("carol", 0, 1.0))
		}
		store := &fakeRelationshipStore{byEntity: map[string][]models.InferredRelationship{
			models.EntityTypePerson + "/carol": rels,
		}}
		scorer := newTestScorer(store, nil)

		score, err := scorer.CalculateRelationshipStrength(context.Background(), "u1", models.EntityTypePerson, "carol")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score.Strength, 0.0001)
	})

	t.Run("store error propagates", func(t *testing.T) {
		scorer := newTestScorer(&fakeRelationshipStore{err: errors.New("graph down")}, nil)
		_, err := scorer.CalculateRelationshipStrength(context.Background(), "u1", models.EntityTypePerson, "alice")
		assert.Error(t, err)
	})
}

func TestScorer_TopRelationships(t *testing.T) {
	all := []models.InferredRelationship{
		emailRel("alice", 0, 0.9),
		emailRel("alice", 1, 0.9),
		emailRel("alice", 2, 0.9),
		emailRel("dave", 90, 0.2),
	}
	// a company relationship too
	acme := emailRel("x", 0, 0.9)
	acme.ToEntityType = models.EntityTypeCompany
	acme.ToEntityValue = "acme"
	all = append(all, acme)

	store := &fakeRelationshipStore{all: all}
	scorer := newTestScorer(store, nil)

	t.Run("sorted by strength descending", func(t *testing.T) {
		scores, err := scorer.TopRelationships(context.Background(), "u1", "", 10)
		require.NoError(t, err)
		require.NotEmpty(t, scores)
		for i := 1; i < len(scores); i++ {
			assert.GreaterOrEqual(t, scores[i-1].Strength, scores[i].Strength)
		}
	})

	t.Run("type filter", func(t *testing.T) {
		scores, err := scorer.TopRelationships(context.Background(), "u1", models.EntityTypeCompany, 10)
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, "acme", scores[0].EntityValue)
	})

	t.Run("limit respected", func(t *testing.T) {
		scores, err := scorer.TopRelationships(context.Background(), "u1", "", 1)
		require.NoError(t, err)
		assert.Len(t, scores, 1)
	})
}

func TestScorer_UpdateRelationshipScores(t *testing.T) {
	rels := make([]models.InferredRelationship, 0, 30)
	for i := 0; i < 20; i++ {
		rels = append(rels, emailRel("alice", 0, 1.0))
	}
	for i := 0; i < 10; i++ {
		rels = append(rels, calendarRel("alice", 0, 1.0))
	}
	rels = append(rels, emailRel("dave", 300, 0.1))

	store := &fakeRelationshipStore{all: rels}
	writer := &fakeStrengthWriter{}
	scorer := newTestScorer(store, writer)

	stats, err := scorer.UpdateRelationshipScores(context.Background(), "u1")
	require.NoError(t, err)

	// "me", "alice" and "dave" all get scored as graph entities
	assert.Equal(t, stats.Total, stats.Strong+stats.Medium+stats.Weak)
	assert.GreaterOrEqual(t, stats.Strong, 1, "alice should be a strong relationship")
	assert.GreaterOrEqual(t, stats.Weak, 1, "dave should be a weak relationship")
	assert.Equal(t, stats.Total, len(writer.written))
	assert.InDelta(t, 1.0, writer.written[models.EntityTypePerson+"/alice"], 0.01)
	assert.Greater(t, stats.AverageStrength, 0.0)
}
