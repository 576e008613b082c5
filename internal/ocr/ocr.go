package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

type Config struct {
	Engine    string // registered engine name; "" -> "tesseract"
	NativePDF string // "pdftotext" | "pdfcpu"; "" -> "pdftotext"

	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language string // default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	MaxPages int    // 0 = no limit
	PSM      int

	TessdataDir   string
	HeicConverter string
}

// ConfigFrom maps the application OCR section onto extractor config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Engine:        c.Engine,
		NativePDF:     c.NativePDF,
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		Language:      c.Language,
		DPI:           c.DPI,
		MaxPages:      c.MaxPages,
		PSM:           c.PSM,
		TessdataDir:   c.TessdataDir,
		HeicConverter: c.HeicConverter,
	}
}

// Extractor turns a raw document into plain text. PDFs use embedded text when there is
// any and fall back to rasterize-and-OCR otherwise; images always go through OCR.
type Extractor struct {
	cfg    Config
	runner Runner
	engine Engine
	native NativeExtractor
	raster Rasterizer
	logger *slog.Logger
}

type Option func(*Extractor)

func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }
func WithEngine(en Engine) Option { return func(e *Extractor) { e.engine = en } }
func WithNative(n NativeExtractor) Option { return func(e *Extractor) { e.native = n } }
func WithRasterizer(r Rasterizer) Option { return func(e *Extractor) { e.raster = r } }

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: ExecRunner{}, logger: logger}
	for _, o := range opts {
		o(e)
	}

	if e.engine == nil {
		en, err := NewEngine(cfg, e.runner, logger)
		if err != nil {
			return nil, err
		}
		e.engine = en
	}
	if e.native == nil {
		switch cfg.NativePDF {
		case "", "pdftotext":
			e.native = NewPdftotextExtractor(cfg, e.runner, logger)
		case "pdfcpu":
			e.native = NewPdfcpuExtractor(cfg, logger)
		default:
			return nil, fmt.Errorf("unknown native pdf extractor %q", cfg.NativePDF)
		}
	}
	if e.raster == nil {
		e.raster = NewPdftoppmRasterizer(cfg, e.runner, logger)
	}
	return e, nil
}

// Extract picks a strategy based on the document's extension. Unsupported extensions
// fail with an UNSUPPORTED_FORMAT AppError.
func (e *Extractor) Extract(ctx context.Context, doc *entity.RawDocument) (entity.ExtractedText, error) {
	start := time.Now()
	ext := doc.Ext()
	logger := common.Logger(ctx, e.logger).With("filename", doc.Filename())
	logger.Debug("ocr.extract.start", "ext", ext, "bytes", doc.Size())

	var (
		res entity.ExtractedText
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, doc, logger)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, doc, logger)
	default:
		logger.Warn("ocr.extract.unsupported", "ext", ext)
		return entity.ExtractedText{}, common.UnsupportedFormat(ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		logger.Error("ocr.extract.failed", "error", err, "duration_ms", res.Duration.Milliseconds())
		return res, err
	}
	logger.Info("ocr.extract.ok",
		"method", res.Method,
		"provenance", res.Provenance,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, doc *entity.RawDocument, logger *slog.Logger) (entity.ExtractedText, error) {
	res := entity.ExtractedText{SourceType: constants.PDF}

	pages, err := e.native.PageTexts(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		logger.Warn("ocr.pdf.native_failed", "error", err)
		res.Warnings = append(res.Warnings, err.Error())
	}
	if text := Normalize(joinNonEmpty(pages)); text != "" {
		res.Text = text
		res.Pages = len(pages)
		res.Provenance = constants.ProvenanceNative
		res.Method = constants.MethodPDFText
		return res, nil
	}
	logger.Debug("ocr.pdf.no_embedded_text", "pages", len(pages))

	ws, err := newWorkspace("docx-pdfocr-*", logger)
	if err != nil {
		return res, err
	}
	defer ws.Close()

	in := filepath.Join(ws.dir, "in.pdf")
	if err := doc.WriteFile(in); err != nil {
		return res, fmt.Errorf("stage pdf: %w", err)
	}
	images, err := e.raster.Rasterize(ctx, in, ws.dir)
	if err != nil {
		return res, fmt.Errorf("rasterize: %w", err)
	}

	texts := make([]string, 0, len(images))
	for i, img := range images {
		lines, err := e.engine.Recognize(ctx, img, e.cfg.Language)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Warn("ocr.pdf.page_failed", "page", i+1, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i+1, err))
			continue
		}
		texts = append(texts, strings.Join(lines, "\n"))
	}
	if len(texts) == 0 && len(images) > 0 {
		return res, fmt.Errorf("ocr failed on all %d pages", len(images))
	}

	res.Text = Normalize(joinNonEmpty(texts))
	res.Pages = len(images)
	res.Provenance = constants.ProvenanceOCR
	res.Method = constants.MethodPDFOCR
	res.Language = e.cfg.Language
	return res, nil
}

func (e *Extractor) extractImage(ctx context.Context, doc *entity.RawDocument, logger *slog.Logger) (entity.ExtractedText, error) {
	res := entity.ExtractedText{SourceType: constants.IMAGE}

	ws, err := newWorkspace("docx-img-*", logger)
	if err != nil {
		return res, err
	}
	defer ws.Close()

	path := filepath.Join(ws.dir, "input."+doc.Ext())
	if err := doc.WriteFile(path); err != nil {
		return res, fmt.Errorf("stage image: %w", err)
	}
	if constants.IsHEICExt(doc.Ext()) {
		path, err = convertHEICtoPNG(ctx, e.runner, logger, e.cfg.HeicConverter, path, ws.dir)
		if err != nil {
			return res, err
		}
	}

	lines, err := e.engine.Recognize(ctx, path, e.cfg.Language)
	if err != nil {
		return res, fmt.Errorf("recognize: %w", err)
	}
	res.Text = Normalize(strings.Join(lines, "\n"))
	res.Pages = 1
	res.Provenance = constants.ProvenanceOCR
	res.Method = constants.MethodImageOCR
	res.Language = e.cfg.Language
	return res, nil
}

// workspace is a temp directory that exists for the duration of one extraction.
type workspace struct {
	dir    string
	logger *slog.Logger
}

func newWorkspace(pattern string, logger *slog.Logger) (*workspace, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &workspace{dir: dir, logger: logger}, nil
}

func (w *workspace) Close() {
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Warn("ocr.workspace.cleanup_failed", "dir", w.dir, "error", err)
	}
}
