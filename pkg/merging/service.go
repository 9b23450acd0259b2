// Package merging owns the merge suggestion lifecycle: storing suggestions,
// auto-applying high confidence ones, and executing merges against the
// entity store.
package merging

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/fern/internal/repositories/mergesuggestion"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SuggestionRepository persists the suggestion lifecycle.
type SuggestionRepository interface {
	Create(ctx context.Context, suggestion *models.MergeSuggestion) (*models.MergeSuggestion, error)
	Get(ctx context.Context, userID string, id string) (*models.MergeSuggestion, error)
	ListByUser(ctx context.Context, userID string, status models.MergeSuggestionStatus, limit int) ([]models.MergeSuggestion, error)
	MarkAutoApplied(ctx context.Context, userID string, id string) error
	Resolve(ctx context.Context, userID string, id string, status models.MergeSuggestionStatus, resolvedBy string) error
	RevertToPending(ctx context.Context, userID string, id string) error
	GetStats(ctx context.Context, userID string) (*models.MergeStats, error)
}

// EntityStore is the slice of the entity repository a merge needs.
type EntityStore interface {
	CountMatching(ctx context.Context, userID string, entityType string, value string) (int, error)
	DeleteMatching(ctx context.Context, userID string, entityType string, value string) (int, error)
}

// GraphStore repoints graph edges when an entity is merged away. Optional.
type GraphStore interface {
	Reassign(ctx context.Context, userID string, entityType string, fromValue string, toValue string) error
}

// Emitter publishes merge lifecycle events. Optional; *events.Emitter
// satisfies it.
type Emitter interface {
	EmitSuggestionCreated(ctx context.Context, suggestion *models.MergeSuggestion)
	EmitMergeApplied(ctx context.Context, suggestion *models.MergeSuggestion, appliedBy string, deleted int)
	EmitMergeRolledBack(ctx context.Context, suggestion *models.MergeSuggestion)
}

// Config holds merge service configuration
type Config struct {
	AutoApplyEnabled   bool
	AutoApplyThreshold float64
}

// DefaultConfig returns the stock merge configuration.
func DefaultConfig() Config {
	return Config{
		AutoApplyEnabled:   true,
		AutoApplyThreshold: 0.95,
	}
}

// Service coordinates merge suggestions and merge execution
type Service struct {
	repo     SuggestionRepository
	entities EntityStore
	graph    GraphStore
	emitter  Emitter
	logger   ectologger.Logger
	validate *validator.Validate
	config   Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new merge service. graph and emitter may be nil.
func NewService(repo SuggestionRepository, entities EntityStore, graph GraphStore, emitter Emitter, logger ectologger.Logger, config Config) *Service {
	if config.AutoApplyThreshold <= 0 || config.AutoApplyThreshold > 1 {
		config.AutoApplyThreshold = 0.95
	}
	return &Service{
		repo:     repo,
		entities: entities,
		graph:    graph,
		emitter:  emitter,
		logger:   logger,
		validate: validator.New(),
		config:   config,
		locks:    make(map[string]*sync.Mutex),
	}
}

// entityLock serializes merges per (user, entity type). Two merges on the
// same key must not interleave their read-then-delete steps.
func (s *Service) entityLock(userID string, entityType string) *sync.Mutex {
	key := userID + "/" + entityType
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// CreateMergeSuggestion validates and stores a suggestion. Suggestions at
// or above the auto-apply threshold are executed immediately; if the merge
// fails the suggestion is rolled back to pending.
func (s *Service) CreateMergeSuggestion(ctx context.Context, req *models.CreateMergeSuggestionRequest) (*models.MergeSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Service.CreateMergeSuggestion")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":     req.UserID,
		"entity_type": req.Entity1Type,
	})

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid merge suggestion: %s", err.Error())
	}
	if req.Entity1Type != req.Entity2Type {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "cannot merge %s with %s", req.Entity1Type, req.Entity2Type)
	}

	suggestion := &models.MergeSuggestion{
		UserID:       req.UserID,
		Entity1Type:  req.Entity1Type,
		Entity1Value: req.Entity1Value,
		Entity2Type:  req.Entity2Type,
		Entity2Value: req.Entity2Value,
		Confidence:   req.Confidence,
		MatchReason:  req.MatchReason,
		MatchFactors: mergesuggestion.EncodeFactors(req.MatchFactors),
		Status:       models.MergeSuggestionStatusPending,
	}

	suggestion, err := s.repo.Create(ctx, suggestion)
	if err != nil {
		return nil, err
	}

	if s.emitter != nil {
		s.emitter.EmitSuggestionCreated(ctx, suggestion)
	}

	if !s.config.AutoApplyEnabled || suggestion.Confidence < s.config.AutoApplyThreshold {
		return suggestion, nil
	}

	log.WithFields(map[string]any{"confidence": suggestion.Confidence}).Info("Auto-applying merge suggestion")

	if err := s.repo.MarkAutoApplied(ctx, suggestion.UserID, suggestion.ID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	appliedBy := models.AppliedBySystem
	suggestion.Status = models.MergeSuggestionStatusAutoApplied
	suggestion.AppliedAt = &now
	suggestion.AppliedBy = &appliedBy

	result, err := s.MergeEntities(ctx, suggestion.UserID,
		models.EntityRef{EntityType: suggestion.Entity1Type, Value: suggestion.Entity1Value},
		models.EntityRef{EntityType: suggestion.Entity2Type, Value: suggestion.Entity2Value},
	)
	if err != nil || !result.Success {
		s.rollback(ctx, suggestion)
		if err != nil {
			return nil, err
		}
		log.WithFields(map[string]any{"reason": result.Message}).Warn("Auto-apply could not execute, suggestion left pending")
		return suggestion, nil
	}

	if s.emitter != nil {
		s.emitter.EmitMergeApplied(ctx, suggestion, models.AppliedBySystem, result.Deleted)
	}

	return suggestion, nil
}

// rollback reverts an auto-applied suggestion to pending. Best effort: a
// revert failure is logged, never returned, so the caller still sees the
// original merge error.
func (s *Service) rollback(ctx context.Context, suggestion *models.MergeSuggestion) {
	if err := s.repo.RevertToPending(ctx, suggestion.UserID, suggestion.ID); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"suggestion_id": suggestion.ID,
		}).Error("Failed to roll back merge suggestion to pending")
		return
	}
	suggestion.Status = models.MergeSuggestionStatusPending
	suggestion.AppliedAt = nil
	suggestion.AppliedBy = nil

	if s.emitter != nil {
		s.emitter.EmitMergeRolledBack(ctx, suggestion)
	}
}

// MergeEntities merges the duplicate entity into the kept one: rows
// matching the merge ref are removed and its graph edges are repointed.
// Expected failures come back as MergeResult with Success=false; store
// errors are returned as errors.
func (s *Service) MergeEntities(ctx context.Context, userID string, keep models.EntityRef, merge models.EntityRef) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Service.MergeEntities")
	defer span.End()

	if keep.EntityType == "" || keep.Value == "" || merge.EntityType == "" || merge.Value == "" {
		return &models.MergeResult{Success: false, Message: "invalid entity reference"}, nil
	}
	if keep.EntityType != merge.EntityType {
		return &models.MergeResult{
			Success: false,
			Message: fmt.Sprintf("cannot merge %s into %s", merge.EntityType, keep.EntityType),
		}, nil
	}
	if normalizers.NormalizeValue(keep.Value) == normalizers.NormalizeValue(merge.Value) {
		return &models.MergeResult{Success: false, Message: "cannot merge an entity with itself"}, nil
	}

	lock := s.entityLock(userID, keep.EntityType)
	lock.Lock()
	defer lock.Unlock()

	kept, err := s.entities.CountMatching(ctx, userID, keep.EntityType, keep.Value)
	if err != nil {
		return nil, err
	}
	if kept == 0 {
		return &models.MergeResult{
			Success: false,
			Message: fmt.Sprintf("no %s entity matches %q", keep.EntityType, keep.Value),
		}, nil
	}

	deleted, err := s.entities.DeleteMatching(ctx, userID, merge.EntityType, merge.Value)
	if err != nil {
		return nil, err
	}
	if deleted == 0 {
		return &models.MergeResult{
			Success: false,
			Message: fmt.Sprintf("no %s entity matches %q", merge.EntityType, merge.Value),
		}, nil
	}

	if s.graph != nil {
		// The rows are already gone; a graph failure here is logged and
		// surfaced to the caller as a degraded success.
		if err := s.graph.Reassign(ctx, userID, merge.EntityType, merge.Value, keep.Value); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"entity_type": merge.EntityType,
				"merge_value": merge.Value,
			}).Error("Failed to reassign graph relationships after merge")
			return &models.MergeResult{
				Success: true,
				Message: fmt.Sprintf("merged %d entities; graph reassignment failed", deleted),
				Deleted: deleted,
			}, nil
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":     userID,
		"entity_type": keep.EntityType,
		"deleted":     deleted,
	}).Infof("Merged %q into %q", merge.Value, keep.Value)

	return &models.MergeResult{
		Success: true,
		Message: fmt.Sprintf("merged %d entities into %q", deleted, keep.Value),
		Deleted: deleted,
	}, nil
}

// AcceptSuggestion executes a pending suggestion on behalf of a reviewer.
func (s *Service) AcceptSuggestion(ctx context.Context, userID string, id string, reviewedBy string) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Service.AcceptSuggestion")
	defer span.End()

	suggestion, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != models.MergeSuggestionStatusPending {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "suggestion %s is %s, not pending", id, suggestion.Status)
	}

	result, err := s.MergeEntities(ctx, userID,
		models.EntityRef{EntityType: suggestion.Entity1Type, Value: suggestion.Entity1Value},
		models.EntityRef{EntityType: suggestion.Entity2Type, Value: suggestion.Entity2Value},
	)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return result, nil
	}

	if err := s.repo.Resolve(ctx, userID, id, models.MergeSuggestionStatusAccepted, reviewedBy); err != nil {
		return nil, err
	}

	if s.emitter != nil {
		s.emitter.EmitMergeApplied(ctx, suggestion, reviewedBy, result.Deleted)
	}

	return result, nil
}

// RejectSuggestion declines a pending suggestion without touching entities.
func (s *Service) RejectSuggestion(ctx context.Context, userID string, id string, reviewedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Service.RejectSuggestion")
	defer span.End()

	suggestion, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if suggestion.Status != models.MergeSuggestionStatusPending {
		return httperror.NewHTTPErrorf(http.StatusConflict, "suggestion %s is %s, not pending", id, suggestion.Status)
	}

	return s.repo.Resolve(ctx, userID, id, models.MergeSuggestionStatusRejected, reviewedBy)
}

// ListSuggestions returns a user's suggestions, optionally filtered by
// status.
func (s *Service) ListSuggestions(ctx context.Context, userID string, status models.MergeSuggestionStatus, limit int) ([]models.MergeSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Service.ListSuggestions")
	defer span.End()

	return s.repo.ListByUser(ctx, userID, status, limit)
}

// GetMergeStats aggregates a user's suggestions by status.
func (s *Service) GetMergeStats(ctx context.Context, userID string) (*models.MergeStats, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Service.GetMergeStats")
	defer span.End()

	return s.repo.GetStats(ctx, userID)
}
