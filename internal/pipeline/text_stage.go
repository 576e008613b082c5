package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

// TextStage runs the extractor, going through the cache when one is configured. The
// extension is checked before the cache so that known bytes under an unsupported name
// still fail.
type TextStage struct {
	extractor TextExtractor
	cache     TextCache
	logger    *slog.Logger
}

func NewTextStage(extractor TextExtractor, cache TextCache, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{extractor: extractor, cache: cache, logger: logger}
}

func (s *TextStage) Run(ctx context.Context, doc *entity.RawDocument) (entity.ExtractedText, bool, error) {
	log := common.Logger(ctx, s.logger)
	start := time.Now()

	if constants.MapExtToFormat(doc.Ext()) == "" {
		err := common.UnsupportedFormat(doc.Ext())
		log.Error("pipeline.text.failed", "filename", doc.Filename(), "error", err)
		return entity.ExtractedText{}, false, err
	}

	var (
		et  entity.ExtractedText
		hit bool
		err error
	)
	if s.cache != nil {
		et, hit, err = s.cache.ExtractedText(ctx, doc, func(ctx context.Context) (entity.ExtractedText, error) {
			return s.extractor.Extract(ctx, doc)
		})
	} else {
		et, err = s.extractor.Extract(ctx, doc)
	}
	if err != nil {
		log.Error("pipeline.text.failed", "filename", doc.Filename(), "error", err)
		return et, false, err
	}

	log.Info("pipeline.text.ok",
		"filename", doc.Filename(),
		"provenance", et.Provenance,
		"method", et.Method,
		"pages", et.Pages,
		"chars", len(et.Text),
		"cache_hit", hit,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return et, hit, nil
}
