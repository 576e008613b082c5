package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

// NativeExtractor pulls embedded text out of a PDF, one string per page.
type NativeExtractor interface {
	PageTexts(ctx context.Context, doc *entity.RawDocument) ([]string, error)
}

// PdftotextExtractor uses poppler's pdftotext.
type PdftotextExtractor struct {
	binary   string
	maxPages int
	runner   Runner
	logger   *slog.Logger
}

func NewPdftotextExtractor(cfg Config, runner Runner, logger *slog.Logger) *PdftotextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	bin := cfg.Pdftotext
	if bin == "" {
		bin = "pdftotext"
	}
	return &PdftotextExtractor{binary: bin, maxPages: cfg.MaxPages, runner: runner, logger: logger}
}

func (p *PdftotextExtractor) PageTexts(ctx context.Context, doc *entity.RawDocument) ([]string, error) {
	ws, err := newWorkspace("docx-pdftext-*", p.logger)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	in := filepath.Join(ws.dir, "in.pdf")
	if err := doc.WriteFile(in); err != nil {
		return nil, fmt.Errorf("stage pdf: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <in> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if p.maxPages > 0 {
		args = append(args, "-l", fmt.Sprint(p.maxPages))
	}
	args = append(args, in, "-")
	out, errb, err := p.runner.Run(ctx, p.binary, p.logger, args...)
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return splitPages(string(out)), nil
}

// splitPages splits pdftotext output on the form feed it emits after every page.
func splitPages(s string) []string {
	if s == "" {
		return nil
	}
	pages := strings.Split(s, "\f")
	if strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
