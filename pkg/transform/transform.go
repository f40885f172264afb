// Package transform normalizes fetched pages into canonical HTML and
// extracted plain text. The canonical HTML is what gets hashed, stored and
// served; the plain text feeds the search index.
package transform

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pemistahl/lingua-go"

	"wikisync/internal/common"
	"wikisync/models"
)

// MaxExtractedText bounds the plain-text payload so search-index rows stay
// bounded.
const MaxExtractedText = 100000

// Result is the output of canonicalizing one page.
type Result struct {
	HTML     string
	Text     string
	Language string
}

// Transformer applies the normalization pipeline: render (or accept
// pre-rendered HTML), wrap math spans, sanitize mirrored content, rewrite
// links, extract text.
type Transformer struct {
	renderer  Renderer
	fallback  Renderer
	sanitizer *bluemonday.Policy
	detector  lingua.LanguageDetector
	textLimit int
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLanguageDetector enables language detection on extracted text.
func WithLanguageDetector(d lingua.LanguageDetector) Option {
	return func(t *Transformer) { t.detector = d }
}

// WithTextLimit overrides the extracted-text bound.
func WithTextLimit(n int) Option {
	return func(t *Transformer) { t.textLimit = n }
}

// NewTransformer builds a Transformer around the preferred renderer.
func NewTransformer(r Renderer, opts ...Option) *Transformer {
	t := &Transformer{
		renderer:  r,
		fallback:  Fallback{},
		sanitizer: bluemonday.UGCPolicy(),
		textLimit: MaxExtractedText,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewLanguageDetector builds the lingua detector used for article metadata.
func NewLanguageDetector() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.French, lingua.German, lingua.Spanish).
		Build()
}

// Canonicalize runs the full normalization pipeline for one page.
func (t *Transformer) Canonicalize(source string, page *models.Page) (*Result, error) {
	rendered := page.PreRenderedHTML
	if rendered == "" {
		var err error
		rendered, err = t.renderer.Render(page.RawContent)
		if err != nil {
			rendered, err = t.fallback.Render(page.RawContent)
			if err != nil {
				return nil, fmt.Errorf("rendering %s: %w", page.Slug, err)
			}
		}
	}

	if page.Math {
		rendered = wrapMath(rendered)
	}

	if page.Mirrored {
		rendered = t.sanitizer.Sanitize(rendered)
	}

	canonical, err := rewriteLinks(rendered, source)
	if err != nil {
		return nil, fmt.Errorf("rewriting links of %s: %w", page.Slug, err)
	}

	text, err := extractText(canonical, t.textLimit)
	if err != nil {
		return nil, fmt.Errorf("extracting text of %s: %w", page.Slug, err)
	}

	res := &Result{HTML: canonical, Text: text}
	if t.detector != nil && text != "" {
		sample := common.Truncate(text, 4096)
		if lang, ok := t.detector.DetectLanguageOf(sample); ok {
			res.Language = strings.ToLower(lang.IsoCode639_1().String())
		}
	}
	return res, nil
}

var (
	displayMath = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	inlineMath  = regexp.MustCompile(`\$([^$\n]+?)\$`)
)

// wrapMath wraps $...$ and $$...$$ spans in client-render-ready markers
// carrying the escaped math source. Rendering itself is a presentation
// concern. Display spans wrap first so the inline pattern cannot split them.
func wrapMath(s string) string {
	s = displayMath.ReplaceAllStringFunc(s, func(m string) string {
		tex := strings.TrimSuffix(strings.TrimPrefix(m, "$$"), "$$")
		return `<div class="math math-display">` + html.EscapeString(tex) + `</div>`
	})
	s = inlineMath.ReplaceAllStringFunc(s, func(m string) string {
		tex := strings.TrimSuffix(strings.TrimPrefix(m, "$"), "$")
		return `<span class="math math-inline">` + html.EscapeString(tex) + `</span>`
	})
	return s
}

// rewriteLinks normalizes hyperlinks and image URLs for the unified serving
// scheme: protocol-relative URLs become https, wiki-style internal links
// become /{source}/{slug}.
func rewriteLinks(rendered, source string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return "", err
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		switch {
		case strings.HasPrefix(href, "//"):
			sel.SetAttr("href", "https:"+href)
		case strings.HasPrefix(href, "/wiki/"):
			sel.SetAttr("href", "/"+source+"/"+strings.TrimPrefix(href, "/wiki/"))
		case strings.HasPrefix(href, "./"):
			sel.SetAttr("href", "/"+source+"/"+strings.TrimPrefix(href, "./"))
		}
	})

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if strings.HasPrefix(src, "//") {
			sel.SetAttr("src", "https:"+src)
		}
	})

	return doc.Find("body").Html()
}

// extractText strips all markup, collapses whitespace and bounds the length.
func extractText(canonical string, limit int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(canonical))
	if err != nil {
		return "", err
	}
	text := common.CollapseWhitespace(doc.Text())
	return common.Truncate(text, limit), nil
}
