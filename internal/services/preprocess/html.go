package preprocess

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// HTMLConverter turns uploaded HTML lab reports into plain text
type HTMLConverter struct {
	logger arbor.ILogger
}

// NewHTMLConverter creates a new HTML converter
func NewHTMLConverter(logger arbor.ILogger) *HTMLConverter {
	return &HTMLConverter{logger: logger}
}

// ToText converts HTML to markdown-flavoured text. Script, style and head
// content is dropped first; if conversion fails or yields nothing the
// document's visible text is returned instead.
func (c *HTMLConverter) ToText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style, head, noscript").Remove()

	body, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	converted, err := converter.ConvertString(body)
	if err != nil || strings.TrimSpace(converted) == "" {
		if err != nil {
			c.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using document text")
		}
		return strings.TrimSpace(doc.Text()), nil
	}

	c.logger.Debug().
		Int("html_length", len(html)).
		Int("text_length", len(converted)).
		Msg("HTML report converted")

	return converted, nil
}
