package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

type fakeEngine struct {
	mu    sync.Mutex
	paths []string
	lines map[string][]string // keyed by base name
	err   error
}

func (f *fakeEngine) Recognize(_ context.Context, imagePath, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, imagePath)
	if f.err != nil {
		return nil, f.err
	}
	if l, ok := f.lines[filepath.Base(imagePath)]; ok {
		return l, nil
	}
	return []string{"line one", "line two"}, nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

type fakeNative struct {
	pages []string
	err   error
	n     int
}

func (f *fakeNative) PageTexts(context.Context, *entity.RawDocument) ([]string, error) {
	f.n++
	return f.pages, f.err
}

type fakeRaster struct {
	pages int
	n     int
}

func (f *fakeRaster) Rasterize(_ context.Context, _ string, outDir string) ([]string, error) {
	f.n++
	var out []string
	for i := 1; i <= f.pages; i++ {
		p := filepath.Join(outDir, "page-"+string(rune('0'+i))+".png")
		if err := os.WriteFile(p, []byte("png"), 0o600); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func newTestExtractor(t *testing.T, en Engine, nat NativeExtractor, ras Rasterizer) *Extractor {
	t.Helper()
	e, err := NewExtractor(Config{}, slog.Default(), WithEngine(en), WithNative(nat), WithRasterizer(ras))
	require.NoError(t, err)
	return e
}

func TestExtractImageNeverCallsNative(t *testing.T) {
	en := &fakeEngine{}
	nat := &fakeNative{pages: []string{"should not be used"}}
	ras := &fakeRaster{}
	e := newTestExtractor(t, en, nat, ras)

	res, err := e.Extract(context.Background(), entity.NewRawDocument("card.JPG", []byte("jpeg")))
	require.NoError(t, err)

	assert.Equal(t, 0, nat.n)
	assert.Equal(t, 0, ras.n)
	assert.Equal(t, 1, en.calls())
	assert.Equal(t, constants.ProvenanceOCR, res.Provenance)
	assert.Equal(t, constants.MethodImageOCR, res.Method)
	assert.Equal(t, "line one\nline two", res.Text)
}

func TestExtractPDFWithTextNeverCallsOCR(t *testing.T) {
	en := &fakeEngine{}
	nat := &fakeNative{pages: []string{"Invoice Number: 42\n", "", "Amount Due: 10.00\n"}}
	ras := &fakeRaster{pages: 2}
	e := newTestExtractor(t, en, nat, ras)

	res, err := e.Extract(context.Background(), entity.NewRawDocument("bill.pdf", []byte("%PDF")))
	require.NoError(t, err)

	assert.Equal(t, 0, en.calls())
	assert.Equal(t, 0, ras.n)
	assert.Equal(t, constants.ProvenanceNative, res.Provenance)
	assert.Equal(t, "Invoice Number: 42\nAmount Due: 10.00", res.Text)
	assert.Equal(t, 3, res.Pages)
}

func TestExtractScannedPDFFallsBackToOCR(t *testing.T) {
	en := &fakeEngine{lines: map[string][]string{
		"page-1.png": {"first page"},
		"page-2.png": {"second page"},
	}}
	nat := &fakeNative{pages: []string{"  \n", "\f"}}
	ras := &fakeRaster{pages: 2}
	e := newTestExtractor(t, en, nat, ras)

	res, err := e.Extract(context.Background(), entity.NewRawDocument("scan.pdf", []byte("%PDF")))
	require.NoError(t, err)

	assert.Equal(t, 1, ras.n)
	assert.Equal(t, 2, en.calls())
	assert.Equal(t, constants.ProvenanceOCR, res.Provenance)
	assert.Equal(t, constants.MethodPDFOCR, res.Method)
	assert.Equal(t, "first page\nsecond page", res.Text)
	assert.Equal(t, 2, res.Pages)
}

func TestExtractNativeErrorFallsBackToOCR(t *testing.T) {
	en := &fakeEngine{}
	nat := &fakeNative{err: errors.New("broken xref")}
	ras := &fakeRaster{pages: 1}
	e := newTestExtractor(t, en, nat, ras)

	res, err := e.Extract(context.Background(), entity.NewRawDocument("broken.pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.Equal(t, constants.ProvenanceOCR, res.Provenance)
	assert.Contains(t, res.Warnings, "broken xref")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := newTestExtractor(t, &fakeEngine{}, &fakeNative{}, &fakeRaster{})

	_, err := e.Extract(context.Background(), entity.NewRawDocument("notes.docx", []byte("x")))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Equal(t, common.CodeUnsupportedFormat, common.CodeOf(err))
}

func TestExtractRemovesTempFilesOnEngineError(t *testing.T) {
	en := &fakeEngine{err: errors.New("tesseract exploded")}
	e := newTestExtractor(t, en, &fakeNative{}, &fakeRaster{pages: 1})

	_, err := e.Extract(context.Background(), entity.NewRawDocument("photo.png", []byte("png")))
	require.Error(t, err)

	_, err = e.Extract(context.Background(), entity.NewRawDocument("scan.pdf", []byte("%PDF")))
	require.Error(t, err)

	require.Len(t, en.paths, 2)
	for _, p := range en.paths {
		_, statErr := os.Stat(filepath.Dir(p))
		assert.True(t, os.IsNotExist(statErr), "workspace %s should be gone", filepath.Dir(p))
	}
}

func TestExtractHEICConvertsFirst(t *testing.T) {
	runner := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		out := args[len(args)-1]
		return nil, nil, os.WriteFile(out, []byte("png"), 0o600)
	}}
	en := &fakeEngine{}
	e, err := NewExtractor(Config{HeicConverter: "magick"}, nil,
		WithRunner(runner), WithEngine(en), WithNative(&fakeNative{}), WithRasterizer(&fakeRaster{}))
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), entity.NewRawDocument("IMG_0001.HEIC", []byte("heic")))
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "magick", runner.calls[0][0])
	require.Len(t, en.paths, 1)
	assert.Equal(t, "page.png", filepath.Base(en.paths[0]))
}

func TestNewExtractorRejectsUnknownStrategies(t *testing.T) {
	_, err := NewExtractor(Config{Engine: "abacus"}, nil)
	assert.Error(t, err)

	_, err = NewExtractor(Config{NativePDF: "ghostscript"}, nil, WithEngine(&fakeEngine{}))
	assert.Error(t, err)
}
