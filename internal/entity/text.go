package entity

import (
	"time"

	"github.com/joseph-ayodele/docextract/constants"
)

// ExtractedText is the plain text recovered from a document plus how it was obtained.
type ExtractedText struct {
	Text       string               `json:"text"`
	Provenance constants.Provenance `json:"provenance"`
	Pages      int                  `json:"pages"`
	SourceType string               `json:"source_type"` // constants.PDF | constants.IMAGE
	Method     string               `json:"method"`      // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string               `json:"language,omitempty"`
	Duration   time.Duration        `json:"duration"`
	Warnings   []string             `json:"warnings,omitempty"`
}
