package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
	"github.com/joseph-ayodele/docextract/internal/fields"
)

const defaultPreviewChars = 300

// Config tunes the processor.
type Config struct {
	PreviewChars     int
	ModelConcurrency int
}

type Option func(*Processor)

// WithCache memoizes text extraction.
func WithCache(c TextCache) Option {
	return func(p *Processor) { p.cache = c }
}

// Processor coordinates text extraction, then classification and field extraction,
// then the optional model calls.
type Processor struct {
	logger   *slog.Logger
	cfg      Config
	cache    TextCache
	enricher Enricher

	text   *TextStage
	parse  *ParseStage
	enrich *EnrichStage
}

// NewProcessor builds a processor. enricher may be nil, in which case model options are
// ignored with a warning.
func NewProcessor(extractor TextExtractor, registry *fields.Registry, enricher Enricher, cfg Config, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PreviewChars <= 0 {
		cfg.PreviewChars = defaultPreviewChars
	}
	p := &Processor{logger: logger, cfg: cfg, enricher: enricher}
	for _, o := range opts {
		o(p)
	}
	p.text = NewTextStage(extractor, p.cache, logger)
	p.parse = NewParseStage(registry, logger)
	if enricher != nil {
		p.enrich = NewEnrichStage(enricher, cfg.ModelConcurrency, logger)
	}
	return p
}

// Process runs every stage for one document. Only text extraction and an unroutable
// document type fail the call; model problems are reported as warnings.
func (p *Processor) Process(ctx context.Context, doc *entity.RawDocument, opts Options) (Result, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	log := common.Logger(ctx, p.logger)
	start := time.Now()

	if doc == nil || doc.Filename() == "" {
		return Result{RequestID: reqID}, common.NewAppError(common.CodeInvalidInput, "document filename is required", common.ErrInvalidInput)
	}

	res := Result{
		RequestID:   reqID,
		Filename:    doc.Filename(),
		FileSize:    doc.Size(),
		Fingerprint: doc.Fingerprint(),
	}
	log.Info("processor.start", "filename", res.Filename, "size", res.FileSize)

	et, hit, err := p.text.Run(ctx, doc)
	if err != nil {
		log.Error("processor.text.failed", "filename", res.Filename, "code", common.CodeOf(err), "error", err)
		return res, err
	}
	res.Provenance = et.Provenance
	res.Method = et.Method
	res.Pages = et.Pages
	res.CacheHit = hit
	res.TextPreview = preview(et.Text, p.cfg.PreviewChars)
	res.Warnings = append(res.Warnings, et.Warnings...)

	pr, err := p.parse.Run(ctx, et.Text)
	res.DocumentType = pr.docType
	if err != nil {
		log.Error("processor.parse.failed", "document_type", pr.docType, "error", err)
		return res, err
	}
	res.Fields = pr.fields
	res.Table = pr.table

	if opts.wantsModel() {
		if p.enrich == nil {
			res.Warnings = append(res.Warnings, "model options requested but no model backend is configured")
		} else {
			e := p.enrich.Run(ctx, pr.docType, et.Text, pr.fields, opts)
			res.Enrichment = e.enrichment
			res.CustomFields = e.customFields
			res.Suggestions = e.suggestions
			res.Warnings = append(res.Warnings, e.warnings...)
		}
	}

	res.Elapsed = time.Since(start)
	log.Info("processor.ok",
		"filename", res.Filename,
		"document_type", res.DocumentType,
		"provenance", res.Provenance,
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
