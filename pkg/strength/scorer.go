// Package strength derives relationship strength scores from the user's
// interaction graph. Scores decay with recency and saturate with
// interaction frequency; nothing here is persisted except the optional
// write-back onto graph nodes.
package strength

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// RelationshipStore reads inferred relationships. *graph.RelationshipService
// satisfies it.
type RelationshipStore interface {
	GetEntityRelationships(ctx context.Context, userID string, entityType string, value string) ([]models.InferredRelationship, error)
	GetAllRelationships(ctx context.Context, userID string, limit int) ([]models.InferredRelationship, error)
}

// StrengthWriter persists computed strengths back onto graph nodes.
// Optional.
type StrengthWriter interface {
	SetEntityStrength(ctx context.Context, userID string, entityType string, value string, strength float64) error
}

// Config holds the scoring parameters.
type Config struct {
	HalfLifeDays        float64
	MaxEmailPerMonth    float64
	MaxCalendarPerMonth float64
	EmailWeight         float64
	CalendarWeight      float64
	RecencyWeight       float64
	SentimentWeight     float64
	ScanLimit           int
}

// DefaultConfig returns the stock scoring parameters: 30 day half-life,
// saturation at 20 emails or 10 calendar events per month.
func DefaultConfig() Config {
	return Config{
		HalfLifeDays:        30,
		MaxEmailPerMonth:    20,
		MaxCalendarPerMonth: 10,
		EmailWeight:         0.3,
		CalendarWeight:      0.3,
		RecencyWeight:       0.25,
		SentimentWeight:     0.15,
		ScanLimit:           5000,
	}
}

// Scorer computes relationship strengths
type Scorer struct {
	store   RelationshipStore
	writer  StrengthWriter
	logger  ectologger.Logger
	config  Config
	weigher *matching.Scorer
	now     func() time.Time
}

// NewScorer creates a new strength scorer. writer may be nil.
func NewScorer(store RelationshipStore, writer StrengthWriter, logger ectologger.Logger, config Config) *Scorer {
	if config.HalfLifeDays <= 0 {
		config.HalfLifeDays = 30
	}
	if config.MaxEmailPerMonth <= 0 {
		config.MaxEmailPerMonth = 20
	}
	if config.MaxCalendarPerMonth <= 0 {
		config.MaxCalendarPerMonth = 10
	}
	if config.ScanLimit <= 0 {
		config.ScanLimit = 5000
	}
	return &Scorer{
		store:   store,
		writer:  writer,
		logger:  logger,
		config:  config,
		weigher: matching.NewScorer(),
		now:     time.Now,
	}
}

// RecencyScore halves for every half-life elapsed since the last
// interaction. Day zero scores 1.
func RecencyScore(daysSince float64, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 0
	}
	if daysSince <= 0 {
		return 1
	}
	return math.Pow(0.5, daysSince/halfLifeDays)
}

// NormalizeFrequency maps interactions-per-month onto [0, 1], saturating
// at max.
func NormalizeFrequency(perMonth float64, max float64) float64 {
	if max <= 0 || perMonth <= 0 {
		return 0
	}
	normalized := perMonth / max
	if normalized > 1 {
		return 1
	}
	return normalized
}

// CalculateRelationshipStrength scores the user's relationship with one
// entity from every interaction touching it. An entity with no
// relationships scores zero.
func (s *Scorer) CalculateRelationshipStrength(ctx context.Context, userID string, entityType string, value string) (*models.RelationshipScore, error) {
	ctx, span := tracing.StartSpan(ctx, "strength.Scorer.CalculateRelationshipStrength")
	defer span.End()

	rels, err := s.store.GetEntityRelationships(ctx, userID, entityType, value)
	if err != nil {
		return nil, err
	}

	// The store contract is loose about direction; keep only edges that
	// actually involve this entity.
	touching := make([]models.InferredRelationship, 0, len(rels))
	for _, rel := range rels {
		if rel.Touches(entityType, value) {
			touching = append(touching, rel)
		}
	}

	score := s.scoreFromRelationships(entityType, value, touching)
	return score, nil
}

func (s *Scorer) scoreFromRelationships(entityType string, value string, rels []models.InferredRelationship) *models.RelationshipScore {
	score := &models.RelationshipScore{
		EntityType:  entityType,
		EntityValue: value,
		Factors: models.ScoreFactors{
			RecencyDays: math.Inf(1),
			Sentiment:   0.5,
		},
	}
	if len(rels) == 0 {
		return score
	}

	now := s.now().UTC()
	var emailCount, calendarCount int
	var oldest, newest time.Time
	var confidenceSum float64
	for _, rel := range rels {
		if isCalendarSource(rel.SourceID) {
			calendarCount++
		} else {
			emailCount++
		}
		confidenceSum += rel.Confidence
		if oldest.IsZero() || rel.InferredAt.Before(oldest) {
			oldest = rel.InferredAt
		}
		if rel.InferredAt.After(newest) {
			newest = rel.InferredAt
		}
	}

	// Interactions are spread over the span from the oldest to the newest
	// one, floored at one month so a burst of new contacts does not
	// saturate. Staleness is the recency factor's job, not frequency's.
	months := newest.Sub(oldest).Hours() / 24 / 30
	if months < 1 {
		months = 1
	}

	score.LastInteraction = newest
	score.InteractionCount = len(rels)
	score.Factors.EmailFrequency = float64(emailCount) / months
	score.Factors.CalendarFrequency = float64(calendarCount) / months
	score.Factors.RecencyDays = now.Sub(newest).Hours() / 24
	if score.Factors.RecencyDays < 0 {
		score.Factors.RecencyDays = 0
	}
	score.Factors.Sentiment = confidenceSum / float64(len(rels))

	emailScore := NormalizeFrequency(score.Factors.EmailFrequency, s.config.MaxEmailPerMonth)
	calendarScore := NormalizeFrequency(score.Factors.CalendarFrequency, s.config.MaxCalendarPerMonth)
	recencyScore := RecencyScore(score.Factors.RecencyDays, s.config.HalfLifeDays)

	score.Strength = s.weigher.WeightedScore(
		map[string]float64{
			"email":     emailScore,
			"calendar":  calendarScore,
			"recency":   recencyScore,
			"sentiment": score.Factors.Sentiment,
		},
		map[string]float64{
			"email":     s.config.EmailWeight,
			"calendar":  s.config.CalendarWeight,
			"recency":   s.config.RecencyWeight,
			"sentiment": s.config.SentimentWeight,
		},
	)
	if score.Strength > 1 {
		score.Strength = 1
	}

	return score
}

// TopRelationships scores every entity in the user's graph and returns the
// strongest, optionally filtered by entity type. Zero strength entities are
// dropped.
func (s *Scorer) TopRelationships(ctx context.Context, userID string, entityType string, limit int) ([]models.RelationshipScore, error) {
	ctx, span := tracing.StartSpan(ctx, "strength.Scorer.TopRelationships")
	defer span.End()

	if limit < 1 {
		limit = 20
	}

	scores, err := s.scoreAll(ctx, userID, entityType)
	if err != nil {
		return nil, err
	}

	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

// UpdateRelationshipScores recomputes every entity's strength, writes it
// back to the graph when a writer is configured, and reports the
// distribution.
func (s *Scorer) UpdateRelationshipScores(ctx context.Context, userID string) (*models.ScoreStats, error) {
	ctx, span := tracing.StartSpan(ctx, "strength.Scorer.UpdateRelationshipScores")
	defer span.End()

	scores, err := s.scoreAll(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	stats := &models.ScoreStats{
		ByType: make(map[string]int),
	}
	var total float64
	for _, score := range scores {
		if s.writer != nil {
			if err := s.writer.SetEntityStrength(ctx, userID, score.EntityType, score.EntityValue, score.Strength); err != nil {
				s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"entity_value": score.EntityValue,
				}).Error("Failed to write entity strength to graph")
			}
		}

		stats.Total++
		stats.ByType[score.EntityType]++
		total += score.Strength
		switch {
		case score.Strength > 0.7:
			stats.Strong++
		case score.Strength < 0.3:
			stats.Weak++
		default:
			stats.Medium++
		}
	}
	if stats.Total > 0 {
		stats.AverageStrength = total / float64(stats.Total)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id": userID,
		"total":   stats.Total,
		"strong":  stats.Strong,
	}).Info("Updated relationship scores")

	return stats, nil
}

func (s *Scorer) scoreAll(ctx context.Context, userID string, entityType string) ([]models.RelationshipScore, error) {
	rels, err := s.store.GetAllRelationships(ctx, userID, s.config.ScanLimit)
	if err != nil {
		return nil, err
	}

	type entityKey struct {
		entityType string
		value      string
	}
	byEntity := make(map[entityKey][]models.InferredRelationship)
	for _, rel := range rels {
		for _, key := range []entityKey{
			{rel.FromEntityType, rel.FromEntityValue},
			{rel.ToEntityType, rel.ToEntityValue},
		} {
			if key.value == "" {
				continue
			}
			if entityType != "" && key.entityType != entityType {
				continue
			}
			byEntity[key] = append(byEntity[key], rel)
		}
	}

	scores := make([]models.RelationshipScore, 0, len(byEntity))
	for key, entityRels := range byEntity {
		score := s.scoreFromRelationships(key.entityType, key.value, entityRels)
		if score.Strength <= 0 {
			continue
		}
		scores = append(scores, *score)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Strength != scores[j].Strength {
			return scores[i].Strength > scores[j].Strength
		}
		return scores[i].EntityValue < scores[j].EntityValue
	})

	return scores, nil
}

// isCalendarSource classifies an interaction by its source identifier;
// everything not recognizably calendar counts as email.
func isCalendarSource(sourceID string) bool {
	lower := strings.ToLower(sourceID)
	return strings.Contains(lower, "cal") ||
		strings.Contains(lower, "event") ||
		strings.Contains(lower, "meeting")
}
