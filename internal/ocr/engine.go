package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Engine recognizes text in a single image and returns its lines in reading order.
type Engine interface {
	Recognize(ctx context.Context, imagePath, lang string) ([]string, error)
}

// EngineFactory builds an Engine from extractor configuration.
type EngineFactory func(cfg Config, runner Runner, logger *slog.Logger) Engine

var (
	enginesMu sync.RWMutex
	engines   = map[string]EngineFactory{
		"tesseract": func(cfg Config, runner Runner, logger *slog.Logger) Engine {
			return NewTesseractEngine(cfg, runner, logger)
		},
	}
)

// RegisterEngine makes an engine selectable by name through Config.Engine.
func RegisterEngine(name string, f EngineFactory) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[name] = f
}

// NewEngine returns the engine registered under cfg.Engine ("tesseract" when empty).
func NewEngine(cfg Config, runner Runner, logger *slog.Logger) (Engine, error) {
	name := cfg.Engine
	if name == "" {
		name = "tesseract"
	}
	enginesMu.RLock()
	f, ok := engines[name]
	enginesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ocr engine %q is not available in this build", name)
	}
	return f(cfg, runner, logger), nil
}

// TesseractEngine shells out to the tesseract CLI.
type TesseractEngine struct {
	binary      string
	tessdataDir string
	psm         int
	runner      Runner
	logger      *slog.Logger
}

func NewTesseractEngine(cfg Config, runner Runner, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	bin := cfg.Tesseract
	if bin == "" {
		bin = "tesseract"
	}
	return &TesseractEngine{binary: bin, tessdataDir: cfg.TessdataDir, psm: cfg.PSM, runner: runner, logger: logger}
}

func (t *TesseractEngine) Recognize(ctx context.Context, imagePath, lang string) ([]string, error) {
	// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir DIR]
	args := []string{imagePath, "stdout", "-l", lang}
	if t.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(t.psm))
	}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.binary, t.logger, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return splitLines(string(out)), nil
}

// splitLines returns the non-blank lines of s with trailing whitespace removed.
func splitLines(s string) []string {
	raw := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, ln := range raw {
		ln = strings.TrimRight(ln, " \t\f")
		if strings.TrimSpace(ln) == "" {
			continue
		}
		lines = append(lines, ln)
	}
	return lines
}
