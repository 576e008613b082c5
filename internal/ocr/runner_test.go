package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil, nil
	}
	return f.fn(name, args)
}

func TestTesseractEngineArgsAndLines(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return []byte("Jane Doe  \n\nAcme Inc\r\n   \nMobile: 555\n"), nil, nil
	}}
	en := NewTesseractEngine(Config{Tesseract: "/usr/bin/tesseract", PSM: 6, TessdataDir: "/td"}, runner, nil)

	lines, err := en.Recognize(context.Background(), "/tmp/x.png", "eng+hin")
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe", "Acme Inc", "Mobile: 555"}, lines)

	require.Len(t, runner.calls, 1)
	assert.Equal(t,
		[]string{"/usr/bin/tesseract", "/tmp/x.png", "stdout", "-l", "eng+hin", "--psm", "6", "--tessdata-dir", "/td"},
		runner.calls[0])
}

func TestTesseractEngineError(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Error opening data file"), errors.New("exit status 1")
	}}
	_, err := NewTesseractEngine(Config{}, runner, nil).Recognize(context.Background(), "x.png", "eng")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error opening data file")
}

func TestPdftotextSplitsPages(t *testing.T) {
	var staged string
	runner := &fakeRunner{fn: func(_ string, args []string) ([]byte, []byte, error) {
		staged = args[len(args)-2]
		_, err := os.Stat(staged)
		require.NoError(t, err)
		return []byte("page one\fpage two\f"), nil, nil
	}}
	p := NewPdftotextExtractor(Config{MaxPages: 5}, runner, nil)

	pages, err := p.PageTexts(context.Background(), entity.NewRawDocument("a.pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, pages)
	assert.Contains(t, runner.calls[0], "-layout")
	assert.Contains(t, runner.calls[0], "-l")

	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err))
}

func TestPdftoppmOrdersPagesNumerically(t *testing.T) {
	runner := &fakeRunner{fn: func(_ string, args []string) ([]byte, []byte, error) {
		prefix := args[len(args)-1]
		for _, n := range []string{"10", "2", "1"} {
			if err := os.WriteFile(prefix+"-"+n+".png", nil, 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	}}
	r := NewPdftoppmRasterizer(Config{DPI: 150}, runner, nil)

	out := t.TempDir()
	pages, err := r.Rasterize(context.Background(), "/in.pdf", out)
	require.NoError(t, err)

	var names []string
	for _, p := range pages {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"page-1.png", "page-2.png", "page-10.png"}, names)
	assert.Equal(t, "150", runner.calls[0][2])
}

func TestPdftoppmNoImages(t *testing.T) {
	r := NewPdftoppmRasterizer(Config{}, &fakeRunner{}, nil)
	_, err := r.Rasterize(context.Background(), "/in.pdf", t.TempDir())
	assert.ErrorIs(t, err, errNoPagesRendered)
}

func TestTextFromContentStream(t *testing.T) {
	stream := strings.Join([]string{
		"BT",
		"/F1 12 Tf",
		"72 720 Td",
		"(Pay to the Order of: Jane Doe) Tj",
		"0 -14 Td",
		"[(Rs. 1,250) -20 (.00)] TJ",
		"T*",
		"(Bank: Test \\(Main\\) Bank) Tj",
		"ET",
	}, "\n")

	got := textFromContentStream([]byte(stream))
	assert.Equal(t, "Pay to the Order of: Jane Doe\nRs. 1,250.00\nBank: Test (Main) Bank", got)
}

func TestDecodePDFStringOctal(t *testing.T) {
	assert.Equal(t, "A B", decodePDFString([]byte(`A\040B`)))
	assert.Equal(t, "tab\there", decodePDFString([]byte(`tab\there`)))
	assert.Equal(t, "café", decodePDFString([]byte(`caf\351`)))
	assert.Equal(t, "£5", decodePDFString([]byte{0xa3, '5'}))
	assert.True(t, utf8.ValidString(decodePDFString([]byte(`\377\200`))))
}

func TestNormalize(t *testing.T) {
	in := "Name:\t\tA  B   \r\n-----\r\n\n\n\nTotal:   179  \f"
	assert.Equal(t, "Name: A B\n\nTotal: 179", Normalize(in))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize(" \n\t "))
}
