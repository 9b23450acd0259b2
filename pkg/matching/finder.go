package matching

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// EntityStore lists a user's extracted entities for the duplicate scan.
type EntityStore interface {
	ListEntitiesByType(ctx context.Context, userID, entityType string, limit int) ([]models.Entity, error)
}

// FinderConfig contains configuration for the duplicate finder.
type FinderConfig struct {
	ScanLimit      int     // entities fetched per type (default: 1000)
	MinConfidence  float64 // default floor for SuggestedMerges (default: 0.7)
	EnableBlocking bool    // bucket by blocking key before the pairwise scan
}

// DefaultFinderConfig returns default finder configuration.
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{
		ScanLimit:      1000,
		MinConfidence:  0.7,
		EnableBlocking: false,
	}
}

// Finder enumerates same-type entity pairs for a user and scores them.
//
// The scan is O(n²) per type and has no internal cancellation beyond the
// context passed to store calls; callers with large sets should bound it
// via ScanLimit or enable blocking.
type Finder struct {
	logger  ectologger.Logger
	store   EntityStore
	matcher *Matcher
	scorer  *Scorer
	config  FinderConfig
}

// NewFinder creates a duplicate finder. A nil matcher gets the defaults.
func NewFinder(logger ectologger.Logger, store EntityStore, matcher *Matcher, config FinderConfig) *Finder {
	if matcher == nil {
		matcher = NewMatcher(nil, 0)
	}
	if config.ScanLimit <= 0 {
		config.ScanLimit = 1000
	}
	if config.MinConfidence <= 0 {
		config.MinConfidence = 0.7
	}
	return &Finder{
		logger:  logger,
		store:   store,
		matcher: matcher,
		scorer:  NewScorer(),
		config:  config,
	}
}

// FindDuplicates scans a user's entities for likely duplicates. With no
// type filter it scans person, company, project, topic and location.
// A failure listing one type is logged and skipped so the scan degrades
// instead of aborting; results are sorted by confidence descending.
func (f *Finder) FindDuplicates(ctx context.Context, userID string, entityTypes ...string) ([]models.EntityMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Finder.FindDuplicates")
	defer span.End()

	if len(entityTypes) == 0 {
		entityTypes = models.DefaultScanTypes()
	}

	log := f.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id": userID,
		"types":   entityTypes,
	})

	matches := make([]models.EntityMatch, 0)

	for _, entityType := range entityTypes {
		entities, err := f.store.ListEntitiesByType(ctx, userID, entityType, f.config.ScanLimit)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{"entity_type": entityType}).Warn("Failed to list entities; skipping type")
			continue
		}

		// scan-local refs; not stable across runs
		for i := range entities {
			entities[i].ID = models.FormatEntityRef(entityType, i, entities[i].CompareValue())
		}

		matches = append(matches, f.scanType(entities)...)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	log.WithFields(map[string]any{"match_count": len(matches)}).Debug("Duplicate scan complete")

	return matches, nil
}

// SuggestedMerges returns only matches at or above the confidence floor.
// A non-positive floor uses the configured default.
func (f *Finder) SuggestedMerges(ctx context.Context, userID string, minConfidence float64, entityTypes ...string) ([]models.EntityMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Finder.SuggestedMerges")
	defer span.End()

	if minConfidence <= 0 {
		minConfidence = f.config.MinConfidence
	}

	matches, err := f.FindDuplicates(ctx, userID, entityTypes...)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.EntityMatch, 0, len(matches))
	for _, match := range matches {
		if match.Confidence >= minConfidence {
			filtered = append(filtered, match)
		}
	}

	return filtered, nil
}

// scanType runs the matcher over every unordered pair, optionally within
// blocking groups only.
func (f *Finder) scanType(entities []models.Entity) []models.EntityMatch {
	if !f.config.EnableBlocking {
		matches := make([]models.EntityMatch, 0)
		for i := 0; i < len(entities); i++ {
			for j := i + 1; j < len(entities); j++ {
				if match := f.matcher.Score(&entities[i], &entities[j]); match != nil {
					matches = append(matches, *match)
				}
			}
		}
		return matches
	}

	// blocking pass: only compare entities sharing a rough phonetic key
	blocks := make(map[string][]int)
	for i := range entities {
		key := f.blockingKey(entities[i].CompareValue())
		blocks[key] = append(blocks[key], i)
	}

	matches := make([]models.EntityMatch, 0)
	for _, indices := range blocks {
		for x := 0; x < len(indices); x++ {
			for y := x + 1; y < len(indices); y++ {
				if match := f.matcher.Score(&entities[indices[x]], &entities[indices[y]]); match != nil {
					matches = append(matches, *match)
				}
			}
		}
	}
	return matches
}

func (f *Finder) blockingKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	first := strings.Fields(value)[0]
	return value[:1] + f.scorer.Soundex(first)
}
