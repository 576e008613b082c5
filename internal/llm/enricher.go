package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
)

// Enricher builds document-aware prompts on top of an Invoker.
type Enricher struct {
	invoker   *Invoker
	textLimit int
	logger    *slog.Logger
}

// NewEnricher clips document text to textLimit runes in prompts; <= 0 means no limit.
func NewEnricher(invoker *Invoker, textLimit int, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{invoker: invoker, textLimit: textLimit, logger: logger}
}

// Enrich asks the model for a normalized JSON rendering of the document.
func (e *Enricher) Enrich(ctx context.Context, t constants.DocumentType, text string, known any, model string) Result {
	prompt := BuildEnrichPrompt(t, text, known, e.textLimit)
	return e.invoker.Invoke(ctx, Request{Prompt: prompt, Model: model})
}

// ExtractCustomFields asks for caller-named fields. The returned map always has one
// entry per requested name when the model produced JSON; it is nil otherwise and the
// Result says why.
func (e *Enricher) ExtractCustomFields(ctx context.Context, t constants.DocumentType, text string, names []string, model string) (CustomFields, Result, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return nil, Result{}, common.NewAppError(common.CodeInvalidInput, "no custom fields requested", common.ErrInvalidInput)
	}

	log := common.Logger(ctx, e.logger)
	res := e.invoker.Invoke(ctx, Request{Prompt: BuildCustomFieldsPrompt(t, text, names, e.textLimit), Model: model})
	if !res.IsStructured() {
		log.Warn("llm.custom_fields.unstructured", "status", res.Status, "reason", res.Reason)
		return nil, res, nil
	}

	fields, dropped := NormalizeCustomFields(res.Value, names, e.logger)
	if err := ValidateValue(BuildCustomFieldsSchema(names), fields); err != nil {
		log.Error("llm.custom_fields.schema_validation_failed", "error", err)
		return nil, res, fmt.Errorf("custom fields: %w", err)
	}
	log.Info("llm.custom_fields.ok", "requested", len(names), "dropped", len(dropped))
	return fields, res, nil
}

// SuggestFields returns field names the model thinks the document could also yield.
func (e *Enricher) SuggestFields(ctx context.Context, t constants.DocumentType, text string, model string) ([]string, Result) {
	res := e.invoker.Invoke(ctx, Request{Prompt: BuildSuggestionsPrompt(t, text), Model: model})
	if !res.IsStructured() {
		return []string{}, res
	}

	list := suggestionList(res.Value)
	if err := ValidateValue(BuildSuggestionsSchema(), list); err != nil {
		common.Logger(ctx, e.logger).Warn("llm.suggestions.schema_validation_failed", "error", err)
		return []string{}, res
	}
	return list, res
}

// suggestionList accepts a bare list or an object wrapping one.
func suggestionList(v any) []string {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		for _, k := range []string{"fields", "suggestions", "suggested_fields"} {
			if l, ok := t[k].([]any); ok {
				items = l
				break
			}
		}
	}
	var raw []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			raw = append(raw, s)
		}
	}
	return cleanNames(raw)
}

func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
