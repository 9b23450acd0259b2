package models

import "time"

// ScoreFactors are the inputs behind a relationship strength score.
type ScoreFactors struct {
	EmailFrequency    float64 `json:"email_frequency"`    // interactions per month
	CalendarFrequency float64 `json:"calendar_frequency"` // interactions per month
	RecencyDays       float64 `json:"recency_days"`       // days since last interaction (+Inf when none)
	Sentiment         float64 `json:"sentiment"`          // 0..1, confidence mean proxy
}

// RelationshipScore is the derived strength of a user's relationship with
// one entity. Recomputed on demand; never persisted by this engine.
type RelationshipScore struct {
	EntityID         string       `json:"entity_id"`
	EntityType       string       `json:"entity_type"`
	EntityValue      string       `json:"entity_value"`
	Strength         float64      `json:"strength"`
	LastInteraction  time.Time    `json:"last_interaction"`
	InteractionCount int          `json:"interaction_count"`
	Factors          ScoreFactors `json:"factors"`
}

// ScoreStats buckets a user's relationship graph by strength.
type ScoreStats struct {
	Total           int            `json:"total"`
	Strong          int            `json:"strong"` // > 0.7
	Medium          int            `json:"medium"` // 0.3 .. 0.7
	Weak            int            `json:"weak"`   // < 0.3
	ByType          map[string]int `json:"by_type"`
	AverageStrength float64        `json:"average_strength"`
}
