package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/fields"
	"github.com/joseph-ayodele/docextract/internal/llm"
)

// EnrichStage fans the requested model calls out under a concurrency limit. Model
// failures become warnings; they never fail the document.
type EnrichStage struct {
	enricher    Enricher
	concurrency int
	logger      *slog.Logger
}

func NewEnrichStage(enricher Enricher, concurrency int, logger *slog.Logger) *EnrichStage {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichStage{enricher: enricher, concurrency: concurrency, logger: logger}
}

type enriched struct {
	enrichment   *llm.Result
	customFields llm.CustomFields
	suggestions  []string
	warnings     []string
}

func (s *EnrichStage) Run(ctx context.Context, t constants.DocumentType, text string, known *fields.FieldMap, opts Options) enriched {
	log := common.Logger(ctx, s.logger)
	var (
		out enriched
		mu  sync.Mutex
	)
	warn := func(format string, args ...any) {
		mu.Lock()
		out.warnings = append(out.warnings, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	if opts.Enrich {
		g.Go(func() error {
			var k any
			if known != nil {
				k = known
			}
			res := s.enricher.Enrich(gctx, t, text, k, opts.Model)
			if res.Status == constants.OutcomeFailed {
				warn("enrichment failed: %s", res.Reason)
			}
			mu.Lock()
			out.enrichment = &res
			mu.Unlock()
			return nil
		})
	}
	if len(opts.CustomFields) > 0 {
		g.Go(func() error {
			cf, res, err := s.enricher.ExtractCustomFields(gctx, t, text, opts.CustomFields, opts.Model)
			switch {
			case err != nil:
				warn("custom fields: %v", err)
			case cf == nil:
				warn("custom fields: model returned %s", res.Status)
			}
			mu.Lock()
			out.customFields = cf
			mu.Unlock()
			return nil
		})
	}
	if opts.SuggestFields {
		g.Go(func() error {
			names, res := s.enricher.SuggestFields(gctx, t, text, opts.Model)
			if !res.IsStructured() {
				warn("field suggestions: model returned %s", res.Status)
			}
			mu.Lock()
			out.suggestions = names
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info("pipeline.enrich.done",
		"document_type", t,
		"enrich", opts.Enrich,
		"custom_fields", len(opts.CustomFields),
		"suggest", opts.SuggestFields,
		"warnings", len(out.warnings),
	)
	return out
}
