//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

func init() {
	RegisterEngine("gosseract", func(cfg Config, _ Runner, logger *slog.Logger) Engine {
		return NewGosseractEngine(cfg, logger)
	})
}

// GosseractEngine runs libtesseract in-process through cgo.
type GosseractEngine struct {
	tessdataDir   string
	psm           int
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

func NewGosseractEngine(cfg Config, logger *slog.Logger) *GosseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &GosseractEngine{
		tessdataDir:   cfg.TessdataDir,
		psm:           cfg.PSM,
		clientFactory: gosseract.NewClient,
		logger:        logger,
	}
}

func (e *GosseractEngine) Recognize(ctx context.Context, imagePath, lang string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := e.clientFactory()
	defer func() {
		if err := c.Close(); err != nil {
			e.logger.Warn("ocr.gosseract.close_failed", "error", err)
		}
	}()

	if e.tessdataDir != "" {
		c.TessdataPrefix = e.tessdataDir
	}
	if err := c.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if e.psm > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.psm)); err != nil {
			return nil, fmt.Errorf("set psm: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("gosseract: %w", err)
	}
	return splitLines(text), nil
}
