package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

// Collect resolves a mix of files and directories into loaded documents. Directories are
// walked recursively and only supported extensions are kept; explicitly named files are
// always loaded so the extractor can reject them with a proper error.
func Collect(ctx context.Context, paths []string, skipHidden bool) ([]FileResult, DirStats, error) {
	var (
		results []FileResult
		stats   DirStats
	)
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return results, stats, common.NewAppError(common.CodeInvalidInput, "empty path", common.ErrInvalidInput)
		}
		info, err := os.Stat(p)
		if err != nil {
			stats.Scanned++
			stats.Failed++
			results = append(results, FileResult{Path: p, Err: err})
			continue
		}
		if !info.IsDir() {
			stats.Scanned++
			stats.Matched++
			results = append(results, load(p, &stats))
			continue
		}
		r, s, err := CollectDirectory(ctx, p, skipHidden)
		results = append(results, r...)
		stats.Scanned += s.Scanned
		stats.Matched += s.Matched
		stats.Loaded += s.Loaded
		stats.Failed += s.Failed
		if err != nil {
			return results, stats, err
		}
	}
	return results, stats, nil
}

// CollectDirectory walks root and loads every supported file, skipping hidden entries if
// requested. Per-file failures are recorded and the walk continues.
func CollectDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError(common.CodeInvalidInput, "root path is required", common.ErrInvalidInput)
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		stats.Matched++
		results = append(results, load(path, &stats))
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func load(path string, stats *DirStats) FileResult {
	doc, err := entity.LoadRawDocument(path)
	if err != nil {
		stats.Failed++
		return FileResult{Path: path, Err: err}
	}
	stats.Loaded++
	return FileResult{Path: path, Document: doc}
}
