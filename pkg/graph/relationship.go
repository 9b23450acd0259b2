package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// RelationshipService reads and writes inferred relationships in the
// user's graph. Entities are nodes labeled by type and keyed by
// (user_id, value); relationships carry the extraction evidence.
type RelationshipService struct {
	client *Client
	logger ectologger.Logger
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(client *Client, logger ectologger.Logger) *RelationshipService {
	return &RelationshipService{
		client: client,
		logger: logger,
	}
}

// Upsert merges both entity nodes and the relationship between them.
func (s *RelationshipService) Upsert(ctx context.Context, rel *models.InferredRelationship) error {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.Upsert")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"rel_id":   rel.ID,
		"rel_type": rel.RelationshipType,
		"user_id":  rel.UserID,
	})

	props := map[string]any{
		"id":          rel.ID,
		"user_id":     rel.UserID,
		"rel_type":    rel.RelationshipType,
		"confidence":  rel.Confidence,
		"source_id":   rel.SourceID,
		"inferred_at": rel.InferredAt.UTC().Format(time.RFC3339),
		"status":      rel.Status,
	}
	if rel.Evidence != nil {
		props["evidence"] = *rel.Evidence
	}
	if rel.StartDate != nil {
		props["start_date"] = rel.StartDate.UTC().Format(time.RFC3339)
	}
	if rel.EndDate != nil {
		props["end_date"] = rel.EndDate.UTC().Format(time.RFC3339)
	}

	cypher := fmt.Sprintf(`
		MERGE (from:%s {user_id: $user_id, value: $from_value})
		MERGE (to:%s {user_id: $user_id, value: $to_value})
		MERGE (from)-[r:%s {id: $rel_id, user_id: $user_id}]->(to)
		SET r += $props
		RETURN r
	`, sanitizeLabel(rel.FromEntityType), sanitizeLabel(rel.ToEntityType), sanitizeLabel(rel.RelationshipType))

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"user_id":    rel.UserID,
			"from_value": rel.FromEntityValue,
			"to_value":   rel.ToEntityValue,
			"rel_id":     rel.ID,
			"props":      props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		log.WithError(err).Error("Failed to upsert relationship in graph")
		return fmt.Errorf("failed to upsert relationship in graph: %w", err)
	}

	log.Debug("Upserted relationship in graph")
	return nil
}

// GetEntityRelationships returns every relationship touching the entity
// in either direction.
func (s *RelationshipService) GetEntityRelationships(ctx context.Context, userID string, entityType string, value string) ([]models.InferredRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.GetEntityRelationships")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (e:%s {user_id: $user_id, value: $value})-[r]-(other)
		RETURN r, startNode(r) AS from, endNode(r) AS to, labels(startNode(r)) AS from_labels, labels(endNode(r)) AS to_labels
	`, sanitizeLabel(entityType))

	return s.collect(ctx, userID, cypher, map[string]any{
		"user_id": userID,
		"value":   value,
	})
}

// GetAllRelationships returns the user's relationships, capped at limit.
func (s *RelationshipService) GetAllRelationships(ctx context.Context, userID string, limit int) ([]models.InferredRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.GetAllRelationships")
	defer span.End()

	if limit < 1 {
		limit = 1000
	}

	cypher := `
		MATCH (from)-[r {user_id: $user_id}]->(to)
		RETURN r, from, to, labels(from) AS from_labels, labels(to) AS to_labels
		LIMIT $limit
	`

	return s.collect(ctx, userID, cypher, map[string]any{
		"user_id": userID,
		"limit":   limit,
	})
}

// SetEntityStrength writes a computed relationship strength onto the
// entity node.
func (s *RelationshipService) SetEntityStrength(ctx context.Context, userID string, entityType string, value string, strength float64) error {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.SetEntityStrength")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (e:%s {user_id: $user_id, value: $value})
		SET e.strength = $strength, e.strength_updated_at = $updated_at
		RETURN e
	`, sanitizeLabel(entityType))

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"user_id":    userID,
			"value":      value,
			"strength":   strength,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"value": value}).Error("Failed to set entity strength")
		return fmt.Errorf("failed to set entity strength: %w", err)
	}

	return nil
}

// Reassign repoints every relationship of the merged entity onto the kept
// entity, then removes the merged node. Used when a duplicate is merged
// away so its interaction history survives.
func (s *RelationshipService) Reassign(ctx context.Context, userID string, entityType string, fromValue string, toValue string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.Reassign")
	defer span.End()

	label := sanitizeLabel(entityType)

	outgoing := fmt.Sprintf(`
		MATCH (old:%s {user_id: $user_id, value: $from_value})-[r {user_id: $user_id}]->(other)
		MATCH (keep:%s {user_id: $user_id, value: $to_value})
		MERGE (keep)-[nr:RELATES_TO {id: r.id, user_id: $user_id}]->(other)
		SET nr += properties(r)
		DELETE r
	`, label, label)

	incoming := fmt.Sprintf(`
		MATCH (other)-[r {user_id: $user_id}]->(old:%s {user_id: $user_id, value: $from_value})
		MATCH (keep:%s {user_id: $user_id, value: $to_value})
		MERGE (other)-[nr:RELATES_TO {id: r.id, user_id: $user_id}]->(keep)
		SET nr += properties(r)
		DELETE r
	`, label, label)

	remove := fmt.Sprintf(`
		MATCH (old:%s {user_id: $user_id, value: $from_value})
		DETACH DELETE old
	`, label)

	params := map[string]any{
		"user_id":    userID,
		"from_value": fromValue,
		"to_value":   toValue,
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, cypher := range []string{outgoing, incoming, remove} {
			result, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"from_value": fromValue,
			"to_value":   toValue,
		}).Error("Failed to reassign relationships in graph")
		return fmt.Errorf("failed to reassign relationships in graph: %w", err)
	}

	return nil
}

func (s *RelationshipService) collect(ctx context.Context, userID string, cypher string, params map[string]any) ([]models.InferredRelationship, error) {
	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		var rels []models.InferredRelationship
		for result.Next(ctx) {
			record := result.Record()
			rel, ok := parseRelationship(record, userID)
			if !ok {
				continue
			}
			rels = append(rels, rel)
		}
		return rels, result.Err()
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to read relationships from graph")
		return nil, fmt.Errorf("failed to read relationships from graph: %w", err)
	}

	return res.([]models.InferredRelationship), nil
}

func parseRelationship(record *neo4j.Record, userID string) (models.InferredRelationship, bool) {
	relValue, ok := record.Get("r")
	if !ok {
		return models.InferredRelationship{}, false
	}
	r, ok := relValue.(neo4j.Relationship)
	if !ok {
		return models.InferredRelationship{}, false
	}
	if owner, _ := r.Props["user_id"].(string); owner != userID {
		return models.InferredRelationship{}, false
	}

	fromNode, _ := record.Get("from")
	toNode, _ := record.Get("to")
	from, _ := fromNode.(neo4j.Node)
	to, _ := toNode.(neo4j.Node)

	rel := models.InferredRelationship{
		UserID:           userID,
		FromEntityType:   firstLabel(record, "from_labels"),
		FromEntityValue:  stringProp(from.Props, "value"),
		ToEntityType:     firstLabel(record, "to_labels"),
		ToEntityValue:    stringProp(to.Props, "value"),
		RelationshipType: r.Type,
	}
	rel.ID = stringProp(r.Props, "id")
	if relType := stringProp(r.Props, "rel_type"); relType != "" {
		rel.RelationshipType = relType
	}
	rel.SourceID = stringProp(r.Props, "source_id")
	rel.Status = stringProp(r.Props, "status")
	if confidence, ok := r.Props["confidence"].(float64); ok {
		rel.Confidence = confidence
	}
	if evidence := stringProp(r.Props, "evidence"); evidence != "" {
		rel.Evidence = &evidence
	}
	if t, ok := timeProp(r.Props, "inferred_at"); ok {
		rel.InferredAt = t
	}
	if t, ok := timeProp(r.Props, "start_date"); ok {
		rel.StartDate = &t
	}
	if t, ok := timeProp(r.Props, "end_date"); ok {
		rel.EndDate = &t
	}

	return rel, true
}

func firstLabel(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok {
		return ""
	}
	labels, ok := value.([]any)
	if !ok || len(labels) == 0 {
		return ""
	}
	label, _ := labels[0].(string)
	return label
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func timeProp(props map[string]any, key string) (time.Time, bool) {
	switch v := props[key].(type) {
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case time.Time:
		return v, true
	}
	return time.Time{}, false
}
