package names

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// AreAbbreviationVariants reports whether one name is the initial-letter
// acronym of the other ("IBM" vs "International Business Machines").
// Exactly one side must be a single token; the check is symmetric.
func AreAbbreviationVariants(name1, name2 string) bool {
	tokens1 := strings.Fields(normalizers.NormalizeName(name1))
	tokens2 := strings.Fields(normalizers.NormalizeName(name2))

	if len(tokens1) == 0 || len(tokens2) == 0 {
		return false
	}

	if len(tokens1) == 1 && len(tokens2) > 1 {
		return tokens1[0] == acronym(tokens2)
	}
	if len(tokens2) == 1 && len(tokens1) > 1 {
		return tokens2[0] == acronym(tokens1)
	}

	return false
}

func acronym(tokens []string) string {
	var b strings.Builder
	for _, token := range tokens {
		b.WriteRune([]rune(token)[0])
	}
	return b.String()
}
