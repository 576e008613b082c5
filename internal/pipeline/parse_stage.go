package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/classify"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/fields"
)

// ParseStage classifies text and runs the matching field extractor.
type ParseStage struct {
	registry *fields.Registry
	logger   *slog.Logger
}

func NewParseStage(registry *fields.Registry, logger *slog.Logger) *ParseStage {
	if registry == nil {
		registry = fields.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{registry: registry, logger: logger}
}

type parsed struct {
	docType constants.DocumentType
	fields  *fields.FieldMap
	table   [][]string
}

func (s *ParseStage) Run(ctx context.Context, text string) (parsed, error) {
	t := classify.Classify(text)
	fm, err := s.registry.Extract(t, text)
	if err != nil {
		return parsed{docType: t}, err
	}
	common.Logger(ctx, s.logger).Info("pipeline.parse.ok", "document_type", t, "fields", fm.Len())
	return parsed{docType: t, fields: fm, table: fields.Rows(t, fm)}, nil
}
