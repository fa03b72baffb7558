package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/healthscope/internal/interfaces"
)

const (
	baseFont     = "Arial"
	baseSize     = 10.0
	lineHeight   = 5.0
	contentWidth = 190.0
)

// Renderer implements interfaces.PDFService with goldmark and fpdf
type Renderer struct {
	logger arbor.ILogger
	md     goldmark.Markdown
}

// Compile-time assertion
var _ interfaces.PDFService = (*Renderer)(nil)

// NewRenderer creates a markdown to PDF renderer
func NewRenderer(logger arbor.ILogger) *Renderer {
	return &Renderer{
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}
}

// ConvertMarkdownToPDF renders markdown onto A4 pages
func (s *Renderer) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetCreator("healthscope", true)
	doc.SetMargins(10, 12, 10)
	doc.SetAutoPageBreak(true, 12)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-10)
		doc.SetFont(baseFont, "I", 8)
		doc.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	doc.AddPage()
	doc.SetFont(baseFont, "", baseSize)

	source := []byte(markdown)
	w := &pageWriter{
		pdf:       doc,
		source:    source,
		translate: doc.UnicodeTranslatorFromDescriptor(""),
	}

	if err := ast.Walk(s.md.Parser().Parse(text.NewReader(source)), w.walk); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to layout PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().
		Str("title", title).
		Int("markdown_len", len(markdown)).
		Int("pdf_size", buf.Len()).
		Msg("PDF generated")

	return buf.Bytes(), nil
}

// pageWriter walks a goldmark tree writing flowing text onto the page
type pageWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	bold      bool
	italic    bool
	listDepth int
}

func (w *pageWriter) setFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(baseFont, style, baseSize)
}

func (w *pageWriter) write(s string) {
	w.pdf.Write(lineHeight, w.translate(s))
}

func (w *pageWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.pdf.Ln(4)
			w.pdf.SetFont(baseFont, "B", headingSize(node.Level))
		} else {
			w.pdf.Ln(7)
			w.setFont()
		}

	case *ast.Paragraph:
		if !entering && w.listDepth == 0 {
			w.pdf.Ln(7)
		}

	case *ast.Text:
		if entering {
			w.write(string(node.Segment.Value(w.source)))
			if node.SoftLineBreak() {
				w.write(" ")
			}
			if node.HardLineBreak() {
				w.pdf.Ln(lineHeight)
			}
		}

	case *ast.String:
		if entering {
			w.write(string(node.Value))
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.setFont()

	case *ast.CodeSpan:
		if entering {
			w.pdf.SetFont("Courier", "", baseSize)
			w.write(string(node.Text(w.source)))
			w.setFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.pdf.Ln(lineHeight + 2)
			}
		}

	case *ast.ListItem:
		if entering {
			w.pdf.Ln(lineHeight)
			w.pdf.SetX(10 + float64(w.listDepth)*5)
			w.write("- ")
		}

	case *ast.ThematicBreak:
		if entering {
			y := w.pdf.GetY() + 2
			w.pdf.Line(10, y, 10+contentWidth, y)
			w.pdf.Ln(4)
		}

	case *extast.Table:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 13
	case 3:
		return 11
	default:
		return baseSize
	}
}

func (w *pageWriter) codeBlock(lines *text.Segments) {
	w.pdf.SetFont("Courier", "", 9)
	w.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		w.pdf.MultiCell(0, lineHeight, w.translate(strings.TrimRight(string(line.Value(w.source)), "\n")), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.pdf.Ln(2)
	w.setFont()
}

// table lays rows out in equal-width columns, first row bold
func (w *pageWriter) table(n *extast.Table) {
	var rows [][]string
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(string(cell.Text(w.source))))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	colWidth := contentWidth / float64(len(rows[0]))
	w.pdf.Ln(2)
	for i, cells := range rows {
		if i == 0 {
			w.pdf.SetFont(baseFont, "B", 9)
			w.pdf.SetFillColor(230, 230, 230)
		} else {
			w.pdf.SetFont(baseFont, "", 9)
			w.pdf.SetFillColor(255, 255, 255)
		}
		for j := range rows[0] {
			cell := ""
			if j < len(cells) {
				cell = cells[j]
			}
			w.pdf.CellFormat(colWidth, 6, w.translate(truncateToWidth(w.pdf, cell, colWidth-2)), "1", 0, "L", true, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.Ln(3)
	w.setFont()
}

func truncateToWidth(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
