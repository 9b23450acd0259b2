// Package matching implements duplicate detection for extracted entities:
// string similarity primitives, per-type heuristic scoring, and the
// pairwise duplicate finder.
package matching

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/names"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// freemailDomains are too common to signal that two people are the same.
var freemailDomains = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
}

// Matcher scores entity pairs into match candidates with explainable factors.
type Matcher struct {
	scorer   *Scorer
	resolver *names.Resolver
	minScore float64
}

// NewMatcher creates a matcher. A nil table uses the built-in nickname
// table; minScore <= 0 falls back to 0.5.
func NewMatcher(table names.Table, minScore float64) *Matcher {
	if minScore <= 0 {
		minScore = 0.5
	}
	return &Matcher{
		scorer:   NewScorer(),
		resolver: names.NewResolver(table),
		minScore: minScore,
	}
}

// Score compares two entities of the same type and returns a match
// candidate, or nil when the pair is not worth surfacing: different types,
// same identity, values already normalized-equal, or a final score below
// the minimum with no factor fired.
func (m *Matcher) Score(e1, e2 *models.Entity) *models.EntityMatch {
	if e1 == nil || e2 == nil || e1 == e2 {
		return nil
	}
	if e1.EntityType != e2.EntityType {
		return nil
	}
	if e1.ID != "" && e1.ID == e2.ID {
		return nil
	}

	norm1 := normalizers.NormalizeValue(e1.CompareValue())
	norm2 := normalizers.NormalizeValue(e2.CompareValue())
	if norm1 == norm2 {
		// already a known duplicate, nothing to surface
		return nil
	}

	score := 0.0
	factors := make([]models.MatchFactor, 0, 3)
	addFactor := func(delta float64, factor models.MatchFactor) {
		score += delta
		factors = append(factors, factor)
	}

	switch e1.EntityType {
	case models.EntityTypePerson:
		email1 := extractEmail(e1)
		email2 := extractEmail(e2)
		switch {
		case email1 != "" && m.scorer.ExactMatch(email1, email2, false) == 1.0:
			addFactor(0.9, models.MatchFactorSameEmail)
		case email1 != "" && email2 != "":
			domain1 := emailDomain(email1)
			if domain1 != "" && domain1 == emailDomain(email2) {
				if _, freemail := freemailDomains[domain1]; !freemail {
					addFactor(0.2, models.MatchFactorSameDomain)
				}
			}
		}

		name1 := normalizers.NormalizeName(e1.Value)
		name2 := normalizers.NormalizeName(e2.Value)

		if m.resolver.AreNicknameVariants(name1, name2) {
			addFactor(0.4, models.MatchFactorNicknameMatch)
		}

		similarName := false
		if jw := m.scorer.JaroWinkler(name1, name2); jw > 0.85 {
			addFactor(0.5*jw, models.MatchFactorSimilarName)
			similarName = true
		}

		// a shared last name counts as name similarity even when the full
		// strings diverge too much for Jaro-Winkler
		if last1, last2 := lastToken(name1), lastToken(name2); last1 != "" && last1 == last2 && len(last1) > 2 {
			score += 0.3
			if !similarName {
				factors = append(factors, models.MatchFactorSimilarName)
			}
		}

	case models.EntityTypeCompany:
		if names.AreAbbreviationVariants(e1.Value, e2.Value) {
			addFactor(0.7, models.MatchFactorAbbreviationMatch)
		}
		if jw := m.scorer.JaroWinkler(norm1, norm2); jw > 0.8 {
			addFactor(0.6*jw, models.MatchFactorSimilarName)
		}

	default:
		if jw := m.scorer.JaroWinkler(norm1, norm2); jw > 0.85 {
			addFactor(0.5*jw, models.MatchFactorSimilarName)
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}

	if score < m.minScore || len(factors) == 0 {
		return nil
	}

	return &models.EntityMatch{
		Entity1ID:    e1.ID,
		Entity2ID:    e2.ID,
		Entity1Value: e1.Value,
		Entity2Value: e2.Value,
		EntityType:   e1.EntityType,
		Confidence:   score,
		MatchFactors: factors,
	}
}

// extractEmail pulls the first email-shaped substring from the entity's
// value or context.
func extractEmail(e *models.Entity) string {
	if match := emailPattern.FindString(e.Value); match != "" {
		return strings.ToLower(match)
	}
	if e.Context != nil {
		if match := emailPattern.FindString(*e.Context); match != "" {
			return strings.ToLower(match)
		}
	}
	return ""
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

func lastToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
