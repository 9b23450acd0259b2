package models

import "time"

// InferredRelationship is produced by upstream extraction and is read-only
// to this engine.
type InferredRelationship struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	FromEntityType   string     `json:"from_entity_type"`
	FromEntityValue  string     `json:"from_entity_value"`
	ToEntityType     string     `json:"to_entity_type"`
	ToEntityValue    string     `json:"to_entity_value"`
	RelationshipType string     `json:"relationship_type"`
	Confidence       float64    `json:"confidence"`
	Evidence         *string    `json:"evidence,omitempty"`
	SourceID         string     `json:"source_id"`
	InferredAt       time.Time  `json:"inferred_at"`
	Status           string     `json:"status"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
}

// Touches reports whether the relationship involves the given entity on
// either side.
func (r *InferredRelationship) Touches(entityType, value string) bool {
	return (r.FromEntityType == entityType && r.FromEntityValue == value) ||
		(r.ToEntityType == entityType && r.ToEntityValue == value)
}
