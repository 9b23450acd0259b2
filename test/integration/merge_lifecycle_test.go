package integration

import (
	"context"
	"os"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/internal/repositories/extractedentity"
	"github.com/Ramsey-B/fern/internal/repositories/mergesuggestion"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
)

type testContext struct {
	ctx            context.Context
	db             database.DB
	logger         ectologger.Logger
	userID         string
	entityRepo     *extractedentity.Repository
	suggestionRepo *mergesuggestion.Repository
}

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// setupTestContext connects to the test database from environment
// variables. Skips when no database is configured.
func setupTestContext(t *testing.T) *testContext {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		t.Skip("Database not configured")
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	logger := getTestLogger()
	cfg := database.ConnectionConfig{
		Driver:   "postgres",
		Host:     host,
		Port:     port,
		Username: os.Getenv("DB_USER_NAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		SSLMode:  "disable",
	}

	db, err := database.Connect(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &testContext{
		ctx:            context.Background(),
		db:             db,
		logger:         logger,
		userID:         "test-user-" + t.Name(),
		entityRepo:     extractedentity.NewRepository(db, logger),
		suggestionRepo: mergesuggestion.NewRepository(db, logger),
	}
}

func (tc *testContext) seedEntities(t *testing.T, values ...string) {
	entities := make([]*models.Entity, 0, len(values))
	for _, value := range values {
		entities = append(entities, &models.Entity{
			UserID:     tc.userID,
			EntityType: models.EntityTypePerson,
			Value:      value,
			Confidence: 0.9,
			Source:     "email",
			SourceID:   "email-thread-1",
		})
	}
	_, err := tc.entityRepo.CreateBatch(tc.ctx, entities)
	require.NoError(t, err)
}

func TestEntityRepository_Lifecycle(t *testing.T) {
	tc := setupTestContext(t)

	tc.seedEntities(t, "Robert Matsuoka", "Bob Matsuoka", "Jane Doe")

	entities, err := tc.entityRepo.ListEntitiesByType(tc.ctx, tc.userID, models.EntityTypePerson, 100)
	require.NoError(t, err)
	assert.Len(t, entities, 3)
	for _, e := range entities {
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.Normalized)
	}

	deleted, err := tc.entityRepo.DeleteMatching(tc.ctx, tc.userID, models.EntityTypePerson, "Bob Matsuoka")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	entities, err = tc.entityRepo.ListEntitiesByType(tc.ctx, tc.userID, models.EntityTypePerson, 100)
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	count, err := tc.entityRepo.CountMatching(tc.ctx, tc.userID, models.EntityTypePerson, "bob matsuoka")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMergeSuggestionRepository_Lifecycle(t *testing.T) {
	tc := setupTestContext(t)

	suggestion, err := tc.suggestionRepo.Create(tc.ctx, &models.MergeSuggestion{
		UserID:       tc.userID,
		Entity1Type:  models.EntityTypePerson,
		Entity1Value: "Robert Matsuoka",
		Entity2Type:  models.EntityTypePerson,
		Entity2Value: "Bob Matsuoka",
		Confidence:   0.7,
		MatchReason:  "nickname and shared last name",
		MatchFactors: `["nickname_match","similar_name"]`,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, suggestion.ID)
	assert.Equal(t, models.MergeSuggestionStatusPending, suggestion.Status)

	fetched, err := tc.suggestionRepo.Get(tc.ctx, tc.userID, suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, suggestion.Entity1Value, fetched.Entity1Value)

	require.NoError(t, tc.suggestionRepo.MarkAutoApplied(tc.ctx, tc.userID, suggestion.ID))
	fetched, err = tc.suggestionRepo.Get(tc.ctx, tc.userID, suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MergeSuggestionStatusAutoApplied, fetched.Status)
	require.NotNil(t, fetched.AppliedBy)
	assert.Equal(t, models.AppliedBySystem, *fetched.AppliedBy)

	require.NoError(t, tc.suggestionRepo.RevertToPending(tc.ctx, tc.userID, suggestion.ID))
	fetched, err = tc.suggestionRepo.Get(tc.ctx, tc.userID, suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MergeSuggestionStatusPending, fetched.Status)
	assert.Nil(t, fetched.AppliedAt)

	stats, err := tc.suggestionRepo.GetStats(tc.ctx, tc.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0.0, stats.AutoApplyRate)
}

// End-to-end: scan for duplicates, create a suggestion from the top match,
// auto-apply it and observe the duplicate disappear.
func TestMergeLifecycle_EndToEnd(t *testing.T) {
	tc := setupTestContext(t)

	tc.seedEntities(t, "Robert Matsuoka", "Bob Matsuoka")

	finder := matching.NewFinder(tc.logger, tc.entityRepo, nil, matching.DefaultFinderConfig())
	matches, err := finder.SuggestedMerges(tc.ctx, tc.userID, 0, models.EntityTypePerson)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	top := matches[0]
	svc := merging.NewService(tc.suggestionRepo, tc.entityRepo, nil, nil, tc.logger, merging.Config{
		AutoApplyEnabled:   true,
		AutoApplyThreshold: 0.65, // below the match score so it auto-applies
	})

	suggestion, err := svc.CreateMergeSuggestion(tc.ctx, &models.CreateMergeSuggestionRequest{
		UserID:       tc.userID,
		Entity1Type:  top.EntityType,
		Entity1Value: top.Entity1Value,
		Entity2Type:  top.EntityType,
		Entity2Value: top.Entity2Value,
		Confidence:   top.Confidence,
		MatchReason:  "duplicate scan",
		MatchFactors: top.MatchFactors,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MergeSuggestionStatusAutoApplied, suggestion.Status)

	entities, err := tc.entityRepo.ListEntitiesByType(tc.ctx, tc.userID, models.EntityTypePerson, 100)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Robert Matsuoka", entities[0].Value)

	stats, err := svc.GetMergeStats(tc.ctx, tc.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AutoApplied)
	assert.InDelta(t, 1.0, stats.AutoApplyRate, 0.0001)
}
