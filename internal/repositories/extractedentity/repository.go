// Package extractedentity persists entities extracted from a user's
// sources. The matching and merging layers read and prune rows here.
package extractedentity

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const columns = "id, user_id, entity_type, value, normalized, confidence, source, source_id, context, created_at, updated_at, deleted_at"

// Repository handles extracted entity persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new extracted entity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a single extracted entity.
func (r *Repository) Create(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	created, err := r.CreateBatch(ctx, []*models.Entity{entity})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// CreateBatch inserts entities in a single transaction. Participates in an
// enclosing transaction when one is on the context.
func (r *Repository) CreateBatch(ctx context.Context, entities []*models.Entity) ([]*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "extractedentity.Repository.CreateBatch")
	defer span.End()

	if len(entities) == 0 {
		return entities, nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entities")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("extracted_entities")
	sb.Cols("id", "user_id", "entity_type", "value", "normalized", "confidence", "source", "source_id", "context", "created_at", "updated_at")
	for _, entity := range entities {
		if entity.ID == "" {
			entity.ID = uuid.New().String()
		}
		if entity.Normalized == "" {
			entity.Normalized = normalizers.NormalizeValue(entity.Value)
		}
		entity.CreatedAt = now
		entity.UpdatedAt = now
		sb.Values(entity.ID, entity.UserID, entity.EntityType, entity.Value, entity.Normalized, entity.Confidence, entity.Source, entity.SourceID, entity.Context, entity.CreatedAt, entity.UpdatedAt)
	}

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(entities)}).Error("Failed to create entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entities")
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit entity batch")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entities")
	}

	return entities, nil
}

// ListEntitiesByType returns a user's live entities of one type, newest
// first, capped at limit.
func (r *Repository) ListEntitiesByType(ctx context.Context, userID string, entityType string, limit int) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "extractedentity.Repository.ListEntitiesByType")
	defer span.End()

	if limit < 1 {
		limit = 1000
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("extracted_entities")
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("entity_type", entityType),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var entities []models.Entity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": entityType}).Error("Failed to list entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entities")
	}

	return entities, nil
}

// DeleteMatching soft deletes every live entity of the given type whose
// value or normalized form matches. Returns the number of rows removed.
func (r *Repository) DeleteMatching(ctx context.Context, userID string, entityType string, value string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "extractedentity.Repository.DeleteMatching")
	defer span.End()

	normalized := normalizers.NormalizeValue(value)

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("extracted_entities")
	sb.Set(
		sb.Assign("deleted_at", time.Now().UTC()),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("entity_type", entityType),
		sb.Or(
			sb.Equal("value", value),
			sb.Equal("normalized", normalized),
		),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": entityType}).Error("Failed to delete matching entities")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete entities")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete entities")
	}

	return int(rows), nil
}

// CountMatching reports how many live entities of the given type match the
// value or its normalized form.
func (r *Repository) CountMatching(ctx context.Context, userID string, entityType string, value string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "extractedentity.Repository.CountMatching")
	defer span.End()

	normalized := normalizers.NormalizeValue(value)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("extracted_entities")
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("entity_type", entityType),
		sb.Or(
			sb.Equal("value", value),
			sb.Equal("normalized", normalized),
		),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count matching entities")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count entities")
	}

	return count, nil
}
