package llm

import (
	"strings"

	"github.com/joseph-ayodele/docextract/constants"
)

const defaultPromptPrefix = "You are an expert document analyzer."

var promptPrefixes = map[constants.DocumentType]string{
	constants.Resume:       "You are an expert HR professional analyzing resumes.",
	constants.Invoice:      "You are an expert accountant analyzing invoices.",
	constants.Marksheet:    "You are an expert academic administrator analyzing academic transcripts.",
	constants.BusinessCard: "You are an expert in business networking analyzing business cards.",
	constants.Cheque:       "You are an expert banking professional analyzing cheques.",
	constants.LorryChallan: "You are an expert logistics professional analyzing transport documents.",
}

// PromptPrefix is the role line that opens every prompt for a document type.
func PromptPrefix(t constants.DocumentType) string {
	if p, ok := promptPrefixes[t]; ok {
		return p
	}
	return defaultPromptPrefix
}

// BuildEnrichPrompt asks for a normalized JSON view of the document. known carries the
// regex-extracted fields so the model can correct rather than start over; it may be nil.
func BuildEnrichPrompt(t constants.DocumentType, text string, known any, limit int) string {
	var b strings.Builder
	b.WriteString(PromptPrefix(t))
	b.WriteString("\nAnalyze the following ")
	b.WriteString(t.Label())
	b.WriteString(" and return ONLY a JSON object with its key fields, values normalized ")
	b.WriteString("(ISO-8601 dates, plain decimal amounts). Add a top-level \"confidence\" between 0 and 1.\n")
	b.WriteString("Never wrap the JSON in prose. Use null for anything not present.\n")
	if known != nil {
		b.WriteString("\nFields already extracted by pattern matching (may be incomplete or wrong):\n")
		b.WriteString(mustJSON(known))
		b.WriteString("\n")
	}
	writeDocument(&b, text, limit)
	return b.String()
}

// BuildCustomFieldsPrompt asks for caller-named fields, each with its own confidence.
func BuildCustomFieldsPrompt(t constants.DocumentType, text string, names []string, limit int) string {
	var b strings.Builder
	b.WriteString(PromptPrefix(t))
	b.WriteString("\nExtract the following specific fields from this ")
	b.WriteString(t.Label())
	b.WriteString(":\n\nFields to extract: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n")
	writeDocument(&b, text, limit)
	b.WriteString("\nReturn JSON with field names as keys. If a field is not found, set value to null.\n")
	b.WriteString("Include a confidence score (0-1) for each field.\n\nFormat:\n")
	b.WriteString(`{"field_name": {"value": "extracted_value", "confidence": 0.85}}`)
	b.WriteString("\n")
	return b.String()
}

// suggestionTextLimit keeps suggestion prompts short; the model only needs the gist.
const suggestionTextLimit = 500

// BuildSuggestionsPrompt asks which further fields the document could yield.
func BuildSuggestionsPrompt(t constants.DocumentType, text string) string {
	var b strings.Builder
	b.WriteString(PromptPrefix(t))
	b.WriteString("\nAnalyze this ")
	b.WriteString(t.Label())
	b.WriteString(" and suggest 10 additional fields that could be extracted:\n\n")
	b.WriteString(clipRunes(strings.TrimSpace(text), suggestionTextLimit))
	b.WriteString("...\n\nReturn only a JSON list of field names:\n[\"field1\", \"field2\"]\n")
	return b.String()
}

func writeDocument(b *strings.Builder, text string, limit int) {
	text = strings.TrimSpace(text)
	clipped := clipRunes(text, limit)
	b.WriteString("\nDocument text:\n")
	b.WriteString(clipped)
	if len(clipped) < len(text) {
		b.WriteString("\n…(truncated)")
	}
	b.WriteString("\n")
}
