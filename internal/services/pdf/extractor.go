// -----------------------------------------------------------------------
// PDF Extractor Service - Extract report text from uploaded PDF files
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
)

// Extractor implements the PDFExtractor interface using pdfcpu
type Extractor struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.PDFExtractor = (*Extractor)(nil)

// NewExtractor creates a new PDF extractor service
func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

var contentPageFile = regexp.MustCompile(`(?i)content_page_(\d+)`)

// ExtractTextFromBytes extracts the text of every page, pages separated by a blank line
func (e *Extractor) ExtractTextFromBytes(ctx context.Context, data []byte) (string, error) {
	pages, err := e.ExtractPagesFromBytes(ctx, data)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		if t := strings.TrimSpace(page.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

// ExtractPagesFromBytes extracts text content by page. pdfcpu works on files,
// so the upload is staged in a private temp directory removed afterwards.
func (e *Extractor) ExtractPagesFromBytes(ctx context.Context, data []byte) ([]interfaces.PDFPageContent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PDF upload")
	}

	workDir, err := os.MkdirTemp("", "healthscope-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	inFile := filepath.Join(workDir, "upload.pdf")
	if err := os.WriteFile(inFile, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(inFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outDir := filepath.Join(workDir, "content")
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}

	pageTexts := make(map[int]string)
	if err := api.ExtractContentFile(inFile, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		e.logger.Warn().Err(err).Int("page_count", pageCount).Msg("Failed to extract PDF content streams")
	} else {
		files, _ := os.ReadDir(outDir)
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			m := contentPageFile.FindStringSubmatch(file.Name())
			if m == nil {
				continue
			}
			pageNum, _ := strconv.Atoi(m[1])
			stream, err := os.ReadFile(filepath.Join(outDir, file.Name()))
			if err != nil {
				continue
			}
			pageTexts[pageNum] += ContentStreamText(string(stream))
		}
	}

	pages := make([]interfaces.PDFPageContent, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, interfaces.PDFPageContent{
			PageNumber: pageNum,
			Text:       pageTexts[pageNum],
		})
	}

	e.logger.Debug().
		Int("page_count", pageCount).
		Int("pages_with_text", len(pageTexts)).
		Msg("Extracted PDF text")

	return pages, nil
}

// ContentStreamText pulls the literal strings shown by text operators out of a
// page content stream. Text positioning operators start a new line.
func ContentStreamText(stream string) string {
	var b strings.Builder
	lineHasText := false

	newline := func() {
		if lineHasText {
			b.WriteByte('\n')
			lineHasText = false
		}
	}

	for i := 0; i < len(stream); i++ {
		c := stream[i]
		switch {
		case c == '(':
			s, end := readLiteral(stream, i)
			b.WriteString(s)
			lineHasText = lineHasText || s != ""
			i = end
		case c == '\'' || c == '"':
			newline()
		case isOperatorStart(stream, i):
			op := readOperator(stream, i)
			switch op {
			case "Td", "TD", "T*", "ET", "Tm":
				newline()
			}
			i += len(op) - 1
		}
	}
	newline()

	return b.String()
}

// readLiteral decodes a (…) string starting at open, honouring nesting and
// escapes. It returns the text and the index of the closing parenthesis.
func readLiteral(s string, open int) (string, int) {
	var b strings.Builder
	depth := 0
	for i := open; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return b.String(), i
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r', 't':
				b.WriteByte(' ')
			default:
				b.WriteByte(s[i])
			}
		case '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), len(s) - 1
}

func isOperatorStart(s string, i int) bool {
	c := s[i]
	if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
		return false
	}
	return i == 0 || isDelimiter(s[i-1])
}

func readOperator(s string, i int) string {
	j := i
	for j < len(s) && !isDelimiter(s[j]) && s[j] != '(' && s[j] != '[' && s[j] != '<' && s[j] != '/' {
		j++
	}
	return s[i:j]
}

func isDelimiter(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == ']' || c == ')' || c == '>'
}
