// Package models defines the data shapes shared across fern's engine and
// repositories.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Entity types produced by upstream extraction.
const (
	EntityTypePerson   = "person"
	EntityTypeCompany  = "company"
	EntityTypeProject  = "project"
	EntityTypeTopic    = "topic"
	EntityTypeLocation = "location"
)

// DefaultScanTypes are the entity types scanned for duplicates when the
// caller does not filter.
func DefaultScanTypes() []string {
	return []string{
		EntityTypePerson,
		EntityTypeCompany,
		EntityTypeProject,
		EntityTypeTopic,
		EntityTypeLocation,
	}
}

// Entity is an extracted entity. Entities are immutable once extracted;
// they only disappear via merge deletion or upstream deletion.
type Entity struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	EntityType string     `json:"entity_type" db:"entity_type"`
	Value      string     `json:"value" db:"value"`
	Normalized string     `json:"normalized" db:"normalized"`
	Confidence float64    `json:"confidence" db:"confidence"`
	Source     string     `json:"source" db:"source"`
	SourceID   string     `json:"source_id" db:"source_id"`
	Context    *string    `json:"context,omitempty" db:"context"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CompareValue returns the normalized value, falling back to the raw value
// when normalization is missing.
func (e *Entity) CompareValue() string {
	if e.Normalized != "" {
		return e.Normalized
	}
	return e.Value
}

// EntityRef identifies an entity by type and normalized value. It replaces
// the older run-local "{type}-{index}-{value}" string identifiers; the
// string form is still accepted for interop, with the index ignored.
type EntityRef struct {
	EntityType string `json:"entity_type"`
	Value      string `json:"value"`
}

// String renders the legacy wire form with a zero index.
func (r EntityRef) String() string {
	return fmt.Sprintf("%s-0-%s", r.EntityType, r.Value)
}

// FormatEntityRef renders the legacy wire form for a scan-local index.
func FormatEntityRef(entityType string, index int, value string) string {
	return fmt.Sprintf("%s-%d-%s", entityType, index, value)
}

// ParseEntityRef parses the "{type}-{index}-{value}" form. The value side
// may itself contain dashes.
func ParseEntityRef(s string) (EntityRef, error) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return EntityRef{}, fmt.Errorf("invalid entity ref %q", s)
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return EntityRef{}, fmt.Errorf("invalid entity ref %q: bad index", s)
	}
	return EntityRef{EntityType: parts[0], Value: parts[2]}, nil
}
