package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreNicknameVariants(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"nickname to full", "Bob Matsuoka", "Robert Matsuoka", true},
		{"full to nickname", "Robert Matsuoka", "Bob Matsuoka", true},
		{"same first name", "Jane Doe", "Jane Smith", true},
		{"bill and william", "Bill Gates", "William Gates", true},
		{"liz and elizabeth", "Liz Warren", "Elizabeth Warren", true},
		{"different full names", "Robert Matsuoka", "Richard Matsuoka", false},
		{"unrelated names", "Alice Chen", "Bob Chen", false},
		{"empty left", "", "Robert", false},
		{"empty right", "Robert", "", false},
		{"case and punctuation ignored", "BOB matsuoka", "Robert Matsuoka Jr.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AreNicknameVariants(tt.a, tt.b))
			assert.Equal(t, tt.want, AreNicknameVariants(tt.b, tt.a))
		})
	}
}

type customTable struct{}

func (customTable) Nicknames(full string) []string {
	if full == "aleksandra" {
		return []string{"ola"}
	}
	return nil
}

func (customTable) FullNames(nick string) []string {
	if nick == "ola" {
		return []string{"aleksandra"}
	}
	return nil
}

func TestResolver_CustomTable(t *testing.T) {
	r := NewResolver(customTable{})

	assert.True(t, r.AreNicknameVariants("Ola Nowak", "Aleksandra Nowak"))
	// custom table replaces the built-in one entirely
	assert.False(t, r.AreNicknameVariants("Bob Smith", "Robert Smith"))
}

func TestAreAbbreviationVariants(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"classic acronym", "IBM", "International Business Machines", true},
		{"lowercase acronym", "ibm", "international business machines", true},
		{"acronym with periods", "I.B.M.", "International Business Machines", true},
		{"wrong acronym", "IBN", "International Business Machines", false},
		{"both multi-token", "Acme Corp", "Acme Corporation", false},
		{"both single token", "IBM", "Intel", false},
		{"empty side", "", "International Business Machines", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AreAbbreviationVariants(tt.a, tt.b))
			assert.Equal(t, tt.want, AreAbbreviationVariants(tt.b, tt.a))
		})
	}
}
