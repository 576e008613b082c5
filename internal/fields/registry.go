// Package fields holds the per-document-type field extractors. Every extractor is
// total over its input: missing fields are reported with the NotFound sentinel,
// empty lists or empty nested maps, never an error.
package fields

import (
	"fmt"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
)

// Extractor turns normalized text into a field map for one document type.
type Extractor interface {
	Extract(text string) *FieldMap
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(text string) *FieldMap

func (f ExtractorFunc) Extract(text string) *FieldMap { return f(text) }

// Registry has one slot per document type so the mapping stays exhaustive at
// compile time. A nil slot falls back to Generic.
type Registry struct {
	Resume       Extractor
	Invoice      Extractor
	Marksheet    Extractor
	Cheque       Extractor
	LorryChallan Extractor
	BusinessCard Extractor
	Generic      Extractor
}

// DefaultRegistry returns the built-in regex extractors.
func DefaultRegistry() *Registry {
	return &Registry{
		Resume:       ExtractorFunc(extractResume),
		Invoice:      ExtractorFunc(extractInvoice),
		Marksheet:    ExtractorFunc(extractMarksheet),
		Cheque:       ExtractorFunc(extractCheque),
		LorryChallan: ExtractorFunc(extractLorryChallan),
		BusinessCard: ExtractorFunc(extractBusinessCard),
		Generic:      ExtractorFunc(extractGeneric),
	}
}

func (r *Registry) slot(t constants.DocumentType) (Extractor, bool) {
	switch t {
	case constants.Resume:
		return r.Resume, true
	case constants.Invoice:
		return r.Invoice, true
	case constants.Marksheet:
		return r.Marksheet, true
	case constants.Cheque:
		return r.Cheque, true
	case constants.LorryChallan:
		return r.LorryChallan, true
	case constants.BusinessCard:
		return r.BusinessCard, true
	case constants.Generic:
		return r.Generic, true
	}
	return nil, false
}

// For returns the extractor registered for t.
func (r *Registry) For(t constants.DocumentType) (Extractor, error) {
	ex, ok := r.slot(t)
	if !ok {
		return nil, common.NewAppError(common.CodeUnknownDocumentType,
			fmt.Sprintf("unknown document type %q", t), common.ErrUnknownDocumentType)
	}
	if ex == nil {
		ex = r.Generic
	}
	if ex == nil {
		return nil, common.NewAppError(common.CodeUnknownDocumentType,
			fmt.Sprintf("no extractor for %q", t), common.ErrUnknownDocumentType)
	}
	return ex, nil
}

// Extract runs the extractor for t over text.
func (r *Registry) Extract(t constants.DocumentType, text string) (*FieldMap, error) {
	ex, err := r.For(t)
	if err != nil {
		return nil, err
	}
	fm := ex.Extract(text)
	if fm == nil {
		fm = NewFieldMap()
	}
	return fm, nil
}
