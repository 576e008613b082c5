// Package ingest discovers documents on the local filesystem, either by walking a
// directory once or by watching it for new files.
package ingest

import (
	"github.com/joseph-ayodele/docextract/internal/entity"
)

// FileResult is the per-file discovery outcome. Exactly one of Document and Err is set.
type FileResult struct {
	Path     string
	Document *entity.RawDocument
	Err      error
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Loaded  uint32
	Failed  uint32
}
