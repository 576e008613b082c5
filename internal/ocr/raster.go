package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer renders the pages of a PDF to images inside outDir, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// PdftoppmRasterizer uses poppler's pdftoppm.
type PdftoppmRasterizer struct {
	binary   string
	dpi      int
	maxPages int
	runner   Runner
	logger   *slog.Logger
}

func NewPdftoppmRasterizer(cfg Config, runner Runner, logger *slog.Logger) *PdftoppmRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	bin := cfg.Pdftoppm
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = 300
	}
	return &PdftoppmRasterizer{binary: bin, dpi: dpi, maxPages: cfg.MaxPages, runner: runner, logger: logger}
}

var errNoPagesRendered = errors.New("pdftoppm produced no images")

func (r *PdftoppmRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	prefix := filepath.Join(outDir, "page")
	// pdftoppm -r 300 -png [-f 1 -l N] <in.pdf> <dir/page>
	args := []string{"-r", strconv.Itoa(r.dpi), "-png"}
	if r.maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(r.maxPages))
	}
	args = append(args, pdfPath, prefix)
	_, errb, err := r.runner.Run(ctx, r.binary, r.logger, args...)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errNoPagesRendered
	}
	sortByPageNumber(matches)
	return matches, nil
}

// sortByPageNumber orders page-N.png files numerically, so page-10 follows page-9.
func sortByPageNumber(paths []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		i := strings.LastIndex(base, "-")
		n, err := strconv.Atoi(base[i+1:])
		if err != nil {
			return 0
		}
		return n
	}
	sort.SliceStable(paths, func(i, j int) bool { return num(paths[i]) < num(paths[j]) })
}
