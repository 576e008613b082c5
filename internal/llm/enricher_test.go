package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
)

func newTestEnricher(fb *fakeBackend) *Enricher {
	iv := NewInvoker(fb, InvokerConfig{Model: "m", MaxAttempts: 1, AttemptTimeout: time.Second}, nil)
	return NewEnricher(iv, 100, nil)
}

func TestExtractCustomFields(t *testing.T) {
	fb := &fakeBackend{steps: []step{{out: "```json\n" +
		`{"due_date": {"value": "2024-01-01", "confidence": 0.9}, "Total": 12, "po number": {"value": null}, "extra": 1}` +
		"\n```"}}}
	e := newTestEnricher(fb)

	got, res, err := e.ExtractCustomFields(context.Background(), constants.Invoice, "Invoice text", []string{"due_date", "total", "po_number", " total "}, "")
	require.NoError(t, err)
	require.True(t, res.IsStructured())

	assert.Equal(t, CustomFields{
		"due_date":  {Value: "2024-01-01", Confidence: 0.9},
		"total":     {Value: float64(12), Confidence: DefaultFieldConfidence},
		"po_number": {},
	}, got)

	require.Len(t, fb.prompts, 1)
	assert.True(t, strings.HasPrefix(fb.prompts[0], "You are an expert accountant analyzing invoices."))
	assert.Contains(t, fb.prompts[0], "Fields to extract: due_date, total, po_number")
}

func TestExtractCustomFieldsRequiresNames(t *testing.T) {
	e := newTestEnricher(&fakeBackend{steps: []step{{out: "{}"}}})
	_, _, err := e.ExtractCustomFields(context.Background(), constants.Generic, "x", []string{" ", ""}, "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtractCustomFieldsUnstructured(t *testing.T) {
	e := newTestEnricher(&fakeBackend{steps: []step{{out: "no idea"}}})
	got, res, err := e.ExtractCustomFields(context.Background(), constants.Generic, "x", []string{"a"}, "")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, constants.OutcomeRawText, res.Status)
	assert.Equal(t, "no idea", res.Raw)
}

func TestSuggestFields(t *testing.T) {
	fb := &fakeBackend{steps: []step{{out: `Here you go: ["gstin", "due_date", "gstin", " "]`}}}
	got, res := newTestEnricher(fb).SuggestFields(context.Background(), constants.Invoice, strings.Repeat("x", 2000), "")
	assert.True(t, res.IsStructured())
	assert.Equal(t, []string{"gstin", "due_date"}, got)
	// Only the first 500 runes of the document go into the prompt.
	assert.NotContains(t, fb.prompts[0], strings.Repeat("x", 501))

	fb = &fakeBackend{steps: []step{{out: `{"suggestions": ["hsn_code"]}`}}}
	got, _ = newTestEnricher(fb).SuggestFields(context.Background(), constants.Invoice, "x", "")
	assert.Equal(t, []string{"hsn_code"}, got)

	fb = &fakeBackend{steps: []step{{err: &ExitError{Code: 1}}}}
	got, res = newTestEnricher(fb).SuggestFields(context.Background(), constants.Invoice, "x", "")
	assert.Empty(t, got)
	assert.Equal(t, constants.OutcomeFailed, res.Status)
}

func TestEnrichPromptCarriesKnownFields(t *testing.T) {
	fb := &fakeBackend{steps: []step{{out: `{"vendor":"Acme"}`}}}
	res := newTestEnricher(fb).Enrich(context.Background(), constants.LorryChallan, strings.Repeat("y", 300), map[string]any{"freight": "1200"}, "")

	require.True(t, res.IsStructured())
	p := fb.prompts[0]
	assert.True(t, strings.HasPrefix(p, "You are an expert logistics professional analyzing transport documents."))
	assert.Contains(t, p, "lorry challan")
	assert.Contains(t, p, `"freight": "1200"`)
	assert.Contains(t, p, "…(truncated)")
	assert.NotContains(t, p, strings.Repeat("y", 101))
}

func TestPromptPrefixDefault(t *testing.T) {
	assert.Equal(t, "You are an expert document analyzer.", PromptPrefix(constants.Generic))
}

func TestCoerceConfidence(t *testing.T) {
	assert.Equal(t, 0.85, coerceConfidence("85%"))
	assert.Equal(t, 0.85, coerceConfidence(85.0))
	assert.Equal(t, 0.5, coerceConfidence("0.5"))
	assert.Equal(t, 1.0, coerceConfidence(400.0))
	assert.Equal(t, 0.0, coerceConfidence(-1.0))
	assert.Equal(t, DefaultFieldConfidence, coerceConfidence(nil))
}
