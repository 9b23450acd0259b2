// Package names resolves common name variants: nickname/full-name pairs and
// initial-letter abbreviations.
package names

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Table looks up nickname variants in both directions. It is injectable so
// hosts can extend or localize the built-in table without touching scoring.
type Table interface {
	// Nicknames returns the known nicknames for a full first name.
	Nicknames(full string) []string
	// FullNames returns the full first names a nickname can stand for.
	FullNames(nick string) []string
}

// nicknamesByFull is the built-in table of common English first names.
var nicknamesByFull = map[string][]string{
	"abigail":     {"abby", "gail"},
	"alexander":   {"alex", "al", "xander", "sasha"},
	"andrew":      {"andy", "drew"},
	"anthony":     {"tony", "ant"},
	"benjamin":    {"ben", "benny", "benji"},
	"catherine":   {"cathy", "kate", "katie", "cat"},
	"charles":     {"charlie", "chuck", "chas"},
	"christopher": {"chris", "topher", "kit"},
	"daniel":      {"dan", "danny"},
	"david":       {"dave", "davey"},
	"deborah":     {"deb", "debbie"},
	"dorothy":     {"dot", "dottie"},
	"edward":      {"ed", "eddie", "ted", "ned"},
	"elizabeth":   {"liz", "beth", "betsy", "eliza", "lizzie"},
	"frances":     {"fran", "frannie"},
	"frederick":   {"fred", "freddie"},
	"gregory":     {"greg"},
	"henry":       {"hank", "harry"},
	"jacqueline":  {"jackie"},
	"james":       {"jim", "jimmy", "jamie"},
	"jennifer":    {"jen", "jenny"},
	"jessica":     {"jess", "jessie"},
	"john":        {"jack", "johnny", "jon"},
	"jonathan":    {"jon", "jonny"},
	"joseph":      {"joe", "joey"},
	"joshua":      {"josh"},
	"katherine":   {"kate", "katie", "kathy", "kat"},
	"kenneth":     {"ken", "kenny"},
	"lawrence":    {"larry"},
	"margaret":    {"maggie", "meg", "peggy", "marge"},
	"matthew":     {"matt", "matty"},
	"michael":     {"mike", "mikey", "mick"},
	"nicholas":    {"nick", "nicky"},
	"patricia":    {"pat", "patty", "tricia", "trish"},
	"patrick":     {"pat", "paddy", "rick"},
	"peter":       {"pete"},
	"rebecca":     {"becky", "becca"},
	"richard":     {"rick", "ricky", "dick", "rich"},
	"robert":      {"bob", "bobby", "rob"},
	"ronald":      {"ron", "ronnie"},
	"samuel":      {"sam", "sammy"},
	"stephen":     {"steve", "stevie"},
	"steven":      {"steve", "stevie"},
	"susan":       {"sue", "susie"},
	"theodore":    {"ted", "teddy", "theo"},
	"thomas":      {"tom", "tommy"},
	"timothy":     {"tim", "timmy"},
	"victoria":    {"vicky", "tori"},
	"william":     {"will", "bill", "billy", "liam"},
	"zachary":     {"zach", "zack"},
}

// fullsByNickname is the precomputed reverse index.
var fullsByNickname = buildReverseIndex(nicknamesByFull)

func buildReverseIndex(byFull map[string][]string) map[string][]string {
	reverse := make(map[string][]string)
	for full, nicks := range byFull {
		for _, nick := range nicks {
			reverse[nick] = append(reverse[nick], full)
		}
	}
	return reverse
}

type defaultTable struct{}

func (defaultTable) Nicknames(full string) []string {
	return nicknamesByFull[full]
}

func (defaultTable) FullNames(nick string) []string {
	return fullsByNickname[nick]
}

// DefaultTable returns the built-in nickname table.
func DefaultTable() Table {
	return defaultTable{}
}

// Resolver answers nickname-variant questions against a Table.
type Resolver struct {
	table Table
}

// NewResolver creates a resolver. A nil table uses the built-in one.
func NewResolver(table Table) *Resolver {
	if table == nil {
		table = DefaultTable()
	}
	return &Resolver{table: table}
}

// AreNicknameVariants reports whether two names share a first name once
// nickname variants are considered. Only the first whitespace-delimited
// token of each name is compared.
func (r *Resolver) AreNicknameVariants(name1, name2 string) bool {
	first1 := firstToken(name1)
	first2 := firstToken(name2)

	if first1 == "" || first2 == "" {
		return false
	}
	if first1 == first2 {
		return true
	}

	for _, nick := range r.table.Nicknames(first1) {
		if nick == first2 {
			return true
		}
	}
	for _, nick := range r.table.Nicknames(first2) {
		if nick == first1 {
			return true
		}
	}
	for _, full := range r.table.FullNames(first1) {
		if full == first2 {
			return true
		}
	}
	for _, full := range r.table.FullNames(first2) {
		if full == first1 {
			return true
		}
	}

	return false
}

// AreNicknameVariants uses the built-in table.
func AreNicknameVariants(name1, name2 string) bool {
	return NewResolver(nil).AreNicknameVariants(name1, name2)
}

// firstToken lowercases, strips punctuation, and returns the first
// whitespace-delimited token.
func firstToken(name string) string {
	normalized := normalizers.NormalizeName(name)
	if normalized == "" {
		return ""
	}
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
