// Package events handles event emission for merge suggestion lifecycle
// changes. Emission is best effort; a publish failure never fails the
// operation that triggered it.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Emitter publishes merge lifecycle events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitSuggestionCreated emits an event for a newly stored suggestion
func (e *Emitter) EmitSuggestionCreated(ctx context.Context, suggestion *models.MergeSuggestion) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSuggestionCreated")
	defer span.End()

	e.publish(ctx, "suggestion.created", suggestion, "", 0)
}

// EmitMergeApplied emits an event after a merge succeeds
func (e *Emitter) EmitMergeApplied(ctx context.Context, suggestion *models.MergeSuggestion, appliedBy string, deleted int) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMergeApplied")
	defer span.End()

	e.publish(ctx, "merge.applied", suggestion, appliedBy, deleted)
}

// EmitMergeRolledBack emits an event after an auto-applied merge is reverted
func (e *Emitter) EmitMergeRolledBack(ctx context.Context, suggestion *models.MergeSuggestion) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMergeRolledBack")
	defer span.End()

	e.publish(ctx, "merge.rolled_back", suggestion, "", 0)
}

func (e *Emitter) publish(ctx context.Context, eventType string, suggestion *models.MergeSuggestion, appliedBy string, deleted int) {
	event := &kafka.MergeEvent{
		EventType:    eventType,
		UserID:       suggestion.UserID,
		SuggestionID: suggestion.ID,
		EntityType:   suggestion.Entity1Type,
		Entity1Value: suggestion.Entity1Value,
		Entity2Value: suggestion.Entity2Value,
		Confidence:   suggestion.Confidence,
		AppliedBy:    appliedBy,
		Deleted:      deleted,
	}

	if err := e.producer.PublishMergeEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type":    eventType,
			"suggestion_id": suggestion.ID,
		}).Error("Failed to emit merge event")
	}
}
