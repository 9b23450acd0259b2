package models

// MatchFactor tags why two entities were flagged as possible duplicates.
type MatchFactor string

const (
	MatchFactorSameEmail         MatchFactor = "same_email"
	MatchFactorSimilarName       MatchFactor = "similar_name"
	MatchFactorSameCompany       MatchFactor = "same_company"
	MatchFactorSameDomain        MatchFactor = "same_domain"
	MatchFactorNicknameMatch     MatchFactor = "nickname_match"
	MatchFactorAbbreviationMatch MatchFactor = "abbreviation_match"
	MatchFactorCoOccurrence      MatchFactor = "co_occurrence"
)

// EntityMatch is a transient duplicate candidate produced by the finder.
// It is never persisted directly; it is the input to a merge suggestion.
type EntityMatch struct {
	Entity1ID    string        `json:"entity1_id"`
	Entity2ID    string        `json:"entity2_id"`
	Entity1Value string        `json:"entity1_value"`
	Entity2Value string        `json:"entity2_value"`
	EntityType   string        `json:"entity_type"`
	Confidence   float64       `json:"confidence"`
	MatchFactors []MatchFactor `json:"match_factors"`
}

// HasFactor reports whether the factor fired for this match.
func (m *EntityMatch) HasFactor(f MatchFactor) bool {
	for _, factor := range m.MatchFactors {
		if factor == f {
			return true
		}
	}
	return false
}
