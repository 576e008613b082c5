package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/cache"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
	"github.com/joseph-ayodele/docextract/internal/llm"
)

type fakeExtractor struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(_ context.Context, doc *entity.RawDocument) (entity.ExtractedText, error) {
	f.calls.Add(1)
	if f.err != nil {
		return entity.ExtractedText{}, f.err
	}
	return entity.ExtractedText{
		Text:       f.text,
		Provenance: constants.ProvenanceNative,
		Pages:      1,
		SourceType: constants.MapExtToFormat(doc.Ext()),
		Method:     constants.MethodPDFText,
	}, nil
}

type fakeEnricher struct {
	mu       sync.Mutex
	enrich   llm.Result
	custom   llm.CustomFields
	suggest  []string
	known    any
	gotNames []string
	models   []string
}

func (f *fakeEnricher) Enrich(_ context.Context, _ constants.DocumentType, _ string, known any, model string) llm.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.known = known
	f.models = append(f.models, model)
	return f.enrich
}

func (f *fakeEnricher) ExtractCustomFields(_ context.Context, _ constants.DocumentType, _ string, names []string, model string) (llm.CustomFields, llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotNames = names
	f.models = append(f.models, model)
	if f.custom == nil {
		return nil, llm.RawText("not json"), nil
	}
	return f.custom, llm.Structured(map[string]any{}, llm.MethodDirect, 0.9), nil
}

func (f *fakeEnricher) SuggestFields(_ context.Context, _ constants.DocumentType, _ string, model string) ([]string, llm.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	return f.suggest, llm.Structured(f.suggest, llm.MethodDirect, 0.9)
}

const invoiceText = "From: Acme Supplies\nInvoice Number: INV-2024-07\nDate: 12/03/2024\nTotal Amount: 1,499.00"

func TestProcessInvoice(t *testing.T) {
	ext := &fakeExtractor{text: invoiceText}
	p := NewProcessor(ext, nil, nil, Config{}, nil)

	res, err := p.Process(context.Background(), entity.NewRawDocument("inv.pdf", []byte("%PDF")), Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "inv.pdf", res.Filename)
	assert.Equal(t, int64(4), res.FileSize)
	assert.Equal(t, constants.Invoice, res.DocumentType)
	assert.Equal(t, "INV-2024-07", res.Fields.String("invoice_number"))
	assert.Equal(t, "Acme Supplies", res.Fields.String("vendor"))
	assert.Nil(t, res.Table)
	assert.Equal(t, invoiceText, res.TextPreview)
	assert.Equal(t, constants.ProvenanceNative, res.Provenance)
	assert.False(t, res.CacheHit)
	assert.Nil(t, res.Enrichment)
	assert.Empty(t, res.Warnings)
}

func TestProcessMarksheetBuildsTable(t *testing.T) {
	ext := &fakeExtractor{text: "Marks obtained per subject:\nMaths 88\nScience 91\nTotal: 179"}
	p := NewProcessor(ext, nil, nil, Config{}, nil)

	res, err := p.Process(context.Background(), entity.NewRawDocument("m.png", []byte("png")), Options{})
	require.NoError(t, err)
	assert.Equal(t, constants.Marksheet, res.DocumentType)
	assert.Equal(t, [][]string{{"Subject", "Marks"}, {"Maths", "88"}, {"Science", "91"}}, res.Table)
}

func TestProcessPropagatesExtractionError(t *testing.T) {
	ext := &fakeExtractor{err: common.UnsupportedFormat(".docx")}
	p := NewProcessor(ext, nil, nil, Config{}, nil)

	res, err := p.Process(context.Background(), entity.NewRawDocument("a.docx", []byte("x")), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Equal(t, common.CodeUnsupportedFormat, common.CodeOf(err))
	assert.Equal(t, "a.docx", res.Filename)
	assert.Nil(t, res.Fields)
	assert.Zero(t, ext.calls.Load())
}

func TestProcessRejectsMissingFilename(t *testing.T) {
	p := NewProcessor(&fakeExtractor{}, nil, nil, Config{}, nil)

	_, err := p.Process(context.Background(), entity.NewRawDocument("", []byte("x")), Options{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = p.Process(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestProcessRunsModelCalls(t *testing.T) {
	enr := &fakeEnricher{
		enrich:  llm.Structured(map[string]any{"currency": "INR"}, llm.MethodDirect, 0.9),
		custom:  llm.CustomFields{"po_number": {Value: "PO-9", Confidence: 0.8}},
		suggest: []string{"due_date", "tax"},
	}
	p := NewProcessor(&fakeExtractor{text: invoiceText}, nil, enr, Config{ModelConcurrency: 2}, nil)

	res, err := p.Process(context.Background(), entity.NewRawDocument("inv.pdf", []byte("%PDF")), Options{
		Enrich:        true,
		CustomFields:  []string{"po_number"},
		SuggestFields: true,
		Model:         "llama3",
	})
	require.NoError(t, err)

	require.NotNil(t, res.Enrichment)
	assert.True(t, res.Enrichment.IsStructured())
	assert.Equal(t, "PO-9", res.CustomFields["po_number"].Value)
	assert.Equal(t, []string{"due_date", "tax"}, res.Suggestions)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"po_number"}, enr.gotNames)
	assert.ElementsMatch(t, []string{"llama3", "llama3", "llama3"}, enr.models)
	assert.Same(t, res.Fields, enr.known)
}

func TestProcessModelProblemsBecomeWarnings(t *testing.T) {
	enr := &fakeEnricher{enrich: llm.Failed("failed after 3 attempts: timeout")}
	p := NewProcessor(&fakeExtractor{text: invoiceText}, nil, enr, Config{}, nil)

	res, err := p.Process(context.Background(), entity.NewRawDocument("inv.pdf", []byte("%PDF")), Options{
		Enrich:       true,
		CustomFields: []string{"po_number"},
	})
	require.NoError(t, err)
	assert.Equal(t, constants.Invoice, res.DocumentType)
	require.NotNil(t, res.Enrichment)
	assert.Equal(t, constants.OutcomeFailed, res.Enrichment.Status)
	assert.Nil(t, res.CustomFields)
	assert.Len(t, res.Warnings, 2)
}

func TestProcessWithoutEnricherWarns(t *testing.T) {
	p := NewProcessor(&fakeExtractor{text: invoiceText}, nil, nil, Config{}, nil)

	res, err := p.Process(context.Background(), entity.NewRawDocument("inv.pdf", []byte("%PDF")), Options{Enrich: true})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no model backend")
	assert.Nil(t, res.Enrichment)
}

func TestProcessUsesTextCache(t *testing.T) {
	ext := &fakeExtractor{text: invoiceText}
	c := cache.New(cache.NewMemoryStore(4), nil)
	p := NewProcessor(ext, nil, nil, Config{}, nil, WithCache(c))
	data := []byte("%PDF identical")

	first, err := p.Process(context.Background(), entity.NewRawDocument("a.pdf", data), Options{})
	require.NoError(t, err)
	second, err := p.Process(context.Background(), entity.NewRawDocument("b.pdf", data), Options{})
	require.NoError(t, err)

	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, int32(1), ext.calls.Load())
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Fields.ToMap(), second.Fields.ToMap())
}

func TestProcessCachedBytesUnderUnsupportedNameFail(t *testing.T) {
	ext := &fakeExtractor{text: invoiceText}
	c := cache.New(cache.NewMemoryStore(4), nil)
	p := NewProcessor(ext, nil, nil, Config{}, nil, WithCache(c))
	data := []byte("%PDF known bytes")

	_, err := p.Process(context.Background(), entity.NewRawDocument("a.pdf", data), Options{})
	require.NoError(t, err)

	res, err := p.Process(context.Background(), entity.NewRawDocument("a.txt", data), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.False(t, res.CacheHit)
	assert.Empty(t, res.DocumentType)
	assert.Equal(t, int32(1), ext.calls.Load())
}

func TestProcessPreviewCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 400)
	p := NewProcessor(&fakeExtractor{text: text}, nil, nil, Config{}, nil)

	res, err := p.Process(context.Background(), entity.NewRawDocument("x.pdf", []byte("%PDF")), Options{})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 300), res.TextPreview)
	assert.Equal(t, constants.Generic, res.DocumentType)
}

func TestProcessKeepsCallerRequestID(t *testing.T) {
	p := NewProcessor(&fakeExtractor{text: "hello"}, nil, nil, Config{}, nil)
	ctx := common.WithRequestID(context.Background(), "req-123")

	res, err := p.Process(ctx, entity.NewRawDocument("x.pdf", []byte("%PDF")), Options{})
	require.NoError(t, err)
	assert.Equal(t, "req-123", res.RequestID)
}

func TestProcessReturnsExtractionErrorUntouched(t *testing.T) {
	boom := errors.New("tesseract missing")
	p := NewProcessor(&fakeExtractor{err: boom}, nil, nil, Config{}, nil)
	_, err := p.Process(context.Background(), entity.NewRawDocument("x.png", []byte("png")), Options{})
	assert.ErrorIs(t, err, boom)
}
