// Package mergesuggestion persists the merge suggestion lifecycle.
package mergesuggestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const columns = "id, user_id, entity1_type, entity1_value, entity2_type, entity2_value, confidence, match_reason, match_factors, status, applied_at, applied_by, created_at, updated_at"

// Repository handles merge suggestion persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new merge suggestion repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new merge suggestion. Status defaults to pending.
func (r *Repository) Create(ctx context.Context, suggestion *models.MergeSuggestion) (*models.MergeSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "mergesuggestion.Repository.Create")
	defer span.End()

	if suggestion.ID == "" {
		suggestion.ID = uuid.New().String()
	}
	suggestion.CreatedAt = time.Now().UTC()
	suggestion.UpdatedAt = suggestion.CreatedAt
	if suggestion.Status == "" {
		suggestion.Status = models.MergeSuggestionStatusPending
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("merge_suggestions")
	sb.Cols("id", "user_id", "entity1_type", "entity1_value", "entity2_type", "entity2_value", "confidence", "match_reason", "match_factors", "status", "applied_at", "applied_by", "created_at", "updated_at")
	sb.Values(suggestion.ID, suggestion.UserID, suggestion.Entity1Type, suggestion.Entity1Value, suggestion.Entity2Type, suggestion.Entity2Value, suggestion.Confidence, suggestion.MatchReason, suggestion.MatchFactors, suggestion.Status, suggestion.AppliedAt, suggestion.AppliedBy, suggestion.CreatedAt, suggestion.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"suggestion_id": suggestion.ID}).Error("Failed to create merge suggestion")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create merge suggestion")
	}

	return suggestion, nil
}

// Get retrieves a merge suggestion by ID
func (r *Repository) Get(ctx context.Context, userID string, id string) (*models.MergeSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "mergesuggestion.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("merge_suggestions")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("user_id", userID),
	)

	query, args := sb.Build()
	var suggestion models.MergeSuggestion
	if err := r.db.GetContext(ctx, &suggestion, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("merge suggestion %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get merge suggestion")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge suggestion")
	}

	return &suggestion, nil
}

// ListByUser retrieves a user's suggestions, optionally filtered by status,
// ordered by confidence then recency.
func (r *Repository) ListByUser(ctx context.Context, userID string, status models.MergeSuggestionStatus, limit int) ([]models.MergeSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "mergesuggestion.Repository.ListByUser")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("merge_suggestions")
	where := []string{sb.Equal("user_id", userID)}
	if status != "" {
		where = append(where, sb.Equal("status", status))
	}
	sb.Where(where...)
	sb.OrderBy("confidence DESC", "created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var suggestions []models.MergeSuggestion
	if err := r.db.SelectContext(ctx, &suggestions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list merge suggestions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list merge suggestions")
	}

	return suggestions, nil
}

// MarkAutoApplied transitions a suggestion to auto_applied with the system
// actor and an applied timestamp.
func (r *Repository) MarkAutoApplied(ctx context.Context, userID string, id string) error {
	now := time.Now().UTC()
	appliedBy := models.AppliedBySystem
	return r.updateStatus(ctx, userID, id, models.MergeSuggestionStatusAutoApplied, &now, &appliedBy)
}

// Resolve transitions a pending suggestion to accepted or rejected by a
// reviewer.
func (r *Repository) Resolve(ctx context.Context, userID string, id string, status models.MergeSuggestionStatus, resolvedBy string) error {
	if status != models.MergeSuggestionStatusAccepted && status != models.MergeSuggestionStatusRejected {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid resolution status %q", status)
	}
	now := time.Now().UTC()
	return r.updateStatus(ctx, userID, id, status, &now, &resolvedBy)
}

// RevertToPending rolls an auto_applied suggestion back to pending,
// clearing the applied fields. Compensation for a failed merge execution;
// never used to re-forward a suggestion.
func (r *Repository) RevertToPending(ctx context.Context, userID string, id string) error {
	return r.updateStatus(ctx, userID, id, models.MergeSuggestionStatusPending, nil, nil)
}

func (r *Repository) updateStatus(ctx context.Context, userID string, id string, status models.MergeSuggestionStatus, appliedAt *time.Time, appliedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "mergesuggestion.Repository.updateStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("merge_suggestions")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("applied_at", appliedAt),
		sb.Assign("applied_by", appliedBy),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("user_id", userID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"suggestion_id": id, "status": status}).Error("Failed to update merge suggestion status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update merge suggestion status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("merge suggestion %s not found", id))
	}

	return nil
}

// GetStats aggregates a user's suggestions by status.
func (r *Repository) GetStats(ctx context.Context, userID string) (*models.MergeStats, error) {
	ctx, span := tracing.StartSpan(ctx, "mergesuggestion.Repository.GetStats")
	defer span.End()

	query := `
		SELECT status, COUNT(*) AS count
		FROM merge_suggestions
		WHERE user_id = $1
		GROUP BY status
	`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get merge suggestion stats")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge stats")
	}
	defer rows.Close()

	stats := &models.MergeStats{}
	for rows.Next() {
		var status models.MergeSuggestionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to scan merge stats row")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge stats")
		}

		stats.Total += count
		switch status {
		case models.MergeSuggestionStatusPending:
			stats.Pending = count
		case models.MergeSuggestionStatusAutoApplied:
			stats.AutoApplied = count
		case models.MergeSuggestionStatusAccepted:
			stats.Accepted = count
		case models.MergeSuggestionStatusRejected:
			stats.Rejected = count
		}
	}
	if err := rows.Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read merge stats rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge stats")
	}

	if stats.Total > 0 {
		stats.AutoApplyRate = float64(stats.AutoApplied) / float64(stats.Total)
	}

	return stats, nil
}

// EncodeFactors renders match factors as the stored JSON array.
func EncodeFactors(factors []models.MatchFactor) string {
	if len(factors) == 0 {
		return "[]"
	}
	data, err := json.Marshal(factors)
	if err != nil {
		return "[]"
	}
	return string(data)
}
