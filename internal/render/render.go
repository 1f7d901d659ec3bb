package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"
)

// MaxSourceSize limits Markdown input to 10MB
const MaxSourceSize = 10 * 1024 * 1024

// Heading is one entry of a document outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id,omitempty"`
}

// Document is a rendered Markdown source.
type Document struct {
	HTML         string      `json:"html"`
	FrontMatter  FrontMatter `json:"-"`
	FirstHeading string      `json:"first_heading,omitempty"`
	Outline      []Heading   `json:"outline,omitempty"`
	Words        int         `json:"words"`
}

// Renderer converts Markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// New creates a renderer. Raw HTML in the source is omitted; bare URLs are
// linked and punctuation is typographically replaced.
func New(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		sanitizer: policy,
		logger:    logger,
	}
}

// Render converts source. Invalid front matter is kept as part of the body.
func (r *Renderer) Render(source string) (*Document, error) {
	if len(source) > MaxSourceSize {
		return nil, fmt.Errorf("source too large: %d bytes (max %d)", len(source), MaxSourceSize)
	}

	fm, body, err := SplitFrontMatter(source)
	if err != nil {
		r.logger.Warn("ignoring front matter", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	html := r.sanitizer.Sanitize(buf.String())

	doc := &Document{HTML: html, FrontMatter: fm}
	if err := inspect(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// inspect fills the outline, first heading and word count from doc.HTML.
func inspect(doc *Document) error {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(doc.HTML))
	if err != nil {
		return fmt.Errorf("failed to parse rendered html: %w", err)
	}

	doc.Words = len(strings.Fields(dom.Text()))
	doc.FirstHeading = strings.TrimSpace(dom.Find("h1, h2, h3, h4, h5, h6").First().Text())

	nodes, err := htmlquery.QueryAll(dom.Nodes[0], "//h1|//h2|//h3|//h4|//h5|//h6")
	if err != nil {
		return fmt.Errorf("failed to query headings: %w", err)
	}
	for _, n := range nodes {
		level, _ := strconv.Atoi(strings.TrimPrefix(n.Data, "h"))
		doc.Outline = append(doc.Outline, Heading{
			Level: level,
			Text:  strings.TrimSpace(htmlquery.InnerText(n)),
			ID:    htmlquery.SelectAttr(n, "id"),
		})
	}
	return nil
}
