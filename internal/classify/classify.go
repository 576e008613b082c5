// Package classify assigns a document type from extracted text using ordered
// keyword rules. The first rule that matches wins; generic is the fallback.
package classify

import (
	"strings"

	"github.com/joseph-ayodele/docextract/constants"
)

// Rule matches lowercased text against keyword groups. Every group in All must have at
// least one keyword present.
type Rule struct {
	Type constants.DocumentType
	All  [][]string
}

func (r Rule) matches(lower string) bool {
	for _, group := range r.All {
		if !containsAny(lower, group) {
			return false
		}
	}
	return true
}

var rules = []Rule{
	{Type: constants.Resume, All: [][]string{{"experience"}, {"education", "skills", "projects"}}},
	{Type: constants.Invoice, All: [][]string{{"invoice number", "amount due", "gstin"}}},
	{Type: constants.Marksheet, All: [][]string{{"marks"}, {"subject", "grade"}}},
	{Type: constants.Cheque, All: [][]string{{"cheque no", "pay to"}}},
	{Type: constants.LorryChallan, All: [][]string{{"challan", "lorry"}}},
	{Type: constants.BusinessCard, All: [][]string{{"mobile"}, {"email"}}},
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify is total: it never fails and always returns a member of the closed set.
func Classify(text string) constants.DocumentType {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.matches(lower) {
			return r.Type
		}
	}
	return constants.Generic
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
