package constants

import "strings"

// DocumentType is the closed set of document kinds the classifier can assign.
type DocumentType string

const (
	Resume       DocumentType = "resume"
	Invoice      DocumentType = "invoice"
	Marksheet    DocumentType = "marksheet"
	Cheque       DocumentType = "cheque"
	LorryChallan DocumentType = "lorry_challan"
	BusinessCard DocumentType = "business_card"
	Generic      DocumentType = "generic"
)

var allDocumentTypes = []DocumentType{
	Resume,
	Invoice,
	Marksheet,
	Cheque,
	LorryChallan,
	BusinessCard,
	Generic,
}

// DocumentTypes returns every member of the closed set, generic last.
func DocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

// DocumentTypeStrings returns the set as plain strings.
func DocumentTypeStrings() []string {
	result := make([]string, len(allDocumentTypes))
	for i, t := range allDocumentTypes {
		result[i] = string(t)
	}
	return result
}

// Valid reports whether t is a member of the closed set.
func (t DocumentType) Valid() bool {
	for _, v := range allDocumentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Label is a human readable name used in prompts.
func (t DocumentType) Label() string {
	switch t {
	case LorryChallan:
		return "lorry challan"
	case BusinessCard:
		return "business card"
	case Generic:
		return "document"
	default:
		return string(t)
	}
}

// ParseDocumentType maps user input (including a few synonyms) onto the closed set.
// Unknown input yields Generic and false.
func ParseDocumentType(input string) (DocumentType, bool) {
	if input == "" {
		return Generic, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	synonyms := map[string]DocumentType{
		"cv":            Resume,
		"bill":          Invoice,
		"receipt":       Invoice,
		"mark_sheet":    Marksheet,
		"report_card":   Marksheet,
		"transcript":    Marksheet,
		"check":         Cheque,
		"challan":       LorryChallan,
		"lorry_receipt": LorryChallan,
		"visiting_card": BusinessCard,
		"card":          BusinessCard,
		"other":         Generic,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allDocumentTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return Generic, false
}
