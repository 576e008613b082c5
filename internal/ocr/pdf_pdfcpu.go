package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

// PdfcpuExtractor reads page content streams in-process, without poppler.
// It only understands simple literal-string text operators, which is enough for
// most generated PDFs; anything it misses falls through to OCR.
type PdfcpuExtractor struct {
	maxPages int
	logger   *slog.Logger
}

func NewPdfcpuExtractor(cfg Config, logger *slog.Logger) *PdfcpuExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PdfcpuExtractor{maxPages: cfg.MaxPages, logger: logger}
}

func (p *PdfcpuExtractor) PageTexts(ctx context.Context, doc *entity.RawDocument) ([]string, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(doc.Reader(), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	n := pctx.PageCount
	if p.maxPages > 0 && n > p.maxPages {
		n = p.maxPages
	}
	pages := make([]string, 0, n)
	for pageNr := 1; pageNr <= n; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
		if err != nil {
			p.logger.Debug("ocr.pdfcpu.page_content_failed", "page", pageNr, "error", err)
			pages = append(pages, "")
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", pageNr, err)
		}
		pages = append(pages, textFromContentStream(data))
	}
	return pages, nil
}

var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// textFromContentStream collects the strings shown by Tj, TJ, ' and " operators.
// Line-positioning operators start a new line.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	newline := func() {
		s := sb.String()
		if len(s) > 0 && !strings.HasSuffix(s, "\n") {
			sb.WriteByte('\n')
		}
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte(`"`)):
			newline()
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")),
			bytes.HasSuffix(line, []byte("Tm")), bytes.Equal(line, []byte("T*")):
			newline()
		}
	}
	return strings.TrimSpace(sb.String())
}

// decodePDFString handles the escape sequences allowed in literal strings. Bytes are
// read as Latin-1 so the result is always valid UTF-8.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteRune(rune(raw[i]))
			continue
		}
		i++
		switch c := raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '\\', '(', ')':
			sb.WriteByte(c)
		default:
			if c < '0' || c > '7' {
				sb.WriteRune(rune(c))
				continue
			}
			val := int(c - '0')
			for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteRune(rune(val & 0xff))
		}
	}
	return sb.String()
}
