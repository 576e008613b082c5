// Package pipeline wires the document stages: text extraction, classification, field
// extraction and optional model enrichment.
package pipeline

import (
	"context"
	"time"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/entity"
	"github.com/joseph-ayodele/docextract/internal/fields"
	"github.com/joseph-ayodele/docextract/internal/llm"
)

// TextExtractor is stage 1: document -> text.
type TextExtractor interface {
	Extract(ctx context.Context, doc *entity.RawDocument) (entity.ExtractedText, error)
}

// TextCache memoizes stage 1 by document fingerprint.
type TextCache interface {
	ExtractedText(ctx context.Context, doc *entity.RawDocument, compute func(context.Context) (entity.ExtractedText, error)) (entity.ExtractedText, bool, error)
}

// Enricher is the optional model stage.
type Enricher interface {
	Enrich(ctx context.Context, t constants.DocumentType, text string, known any, model string) llm.Result
	ExtractCustomFields(ctx context.Context, t constants.DocumentType, text string, names []string, model string) (llm.CustomFields, llm.Result, error)
	SuggestFields(ctx context.Context, t constants.DocumentType, text string, model string) ([]string, llm.Result)
}

// Options selects the model-backed extras for one document. The zero value runs only
// the deterministic stages.
type Options struct {
	Enrich        bool
	CustomFields  []string
	SuggestFields bool
	Model         string
}

func (o Options) wantsModel() bool {
	return o.Enrich || len(o.CustomFields) > 0 || o.SuggestFields
}

// Result is everything the pipeline learned about one document.
type Result struct {
	RequestID    string                 `json:"request_id"`
	Filename     string                 `json:"filename"`
	FileSize     int64                  `json:"file_size"`
	Fingerprint  string                 `json:"fingerprint"`
	DocumentType constants.DocumentType `json:"document_type"`
	Fields       *fields.FieldMap       `json:"fields"`
	Table        [][]string             `json:"table,omitempty"`
	TextPreview  string                 `json:"text_preview"`
	Provenance   constants.Provenance   `json:"provenance"`
	Method       string                 `json:"method"`
	Pages        int                    `json:"pages"`
	CacheHit     bool                   `json:"cache_hit"`
	Warnings     []string               `json:"warnings,omitempty"`

	Enrichment   *llm.Result      `json:"enrichment,omitempty"`
	CustomFields llm.CustomFields `json:"custom_fields,omitempty"`
	Suggestions  []string         `json:"suggestions,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns"`
}
