package transform

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	blackfriday "github.com/russross/blackfriday/v2"
)

// Renderer turns raw source markup into HTML. The preferred renderer is
// selected at startup; Fallback is the deterministic last resort.
type Renderer interface {
	Name() string
	Render(markup string) (string, error)
}

// Markdown renders markdown via blackfriday with the common extension set.
type Markdown struct{}

func (Markdown) Name() string { return "blackfriday" }

func (Markdown) Render(markup string) (string, error) {
	out := blackfriday.Run([]byte(markup), blackfriday.WithExtensions(blackfriday.CommonExtensions))
	if len(out) == 0 && strings.TrimSpace(markup) != "" {
		return "", fmt.Errorf("blackfriday produced no output")
	}
	return string(out), nil
}

var (
	fbHeading = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	fbBold    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	fbItalic  = regexp.MustCompile(`\*([^*]+)\*`)
	fbCode    = regexp.MustCompile("`([^`]+)`")
	fbLink    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// Fallback is a minimal regex-based markdown renderer used when the
// preferred renderer fails. It handles headings, emphasis, inline code,
// links and paragraphs, and nothing else.
type Fallback struct{}

func (Fallback) Name() string { return "fallback" }

func (Fallback) Render(markup string) (string, error) {
	var sb strings.Builder
	var para []string

	flush := func() {
		if len(para) == 0 {
			return
		}
		sb.WriteString("<p>")
		sb.WriteString(renderInline(strings.Join(para, " ")))
		sb.WriteString("</p>\n")
		para = para[:0]
	}

	for _, line := range strings.Split(markup, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if m := fbHeading.FindStringSubmatch(trimmed); m != nil {
			flush()
			level := len(m[1])
			fmt.Fprintf(&sb, "<h%d>%s</h%d>\n", level, renderInline(m[2]), level)
			continue
		}
		para = append(para, trimmed)
	}
	flush()

	return sb.String(), nil
}

func renderInline(s string) string {
	s = html.EscapeString(s)
	s = fbCode.ReplaceAllString(s, "<code>$1</code>")
	s = fbBold.ReplaceAllString(s, "<strong>$1</strong>")
	s = fbItalic.ReplaceAllString(s, "<em>$1</em>")
	s = fbLink.ReplaceAllString(s, `<a href="$2">$1</a>`)
	return s
}
