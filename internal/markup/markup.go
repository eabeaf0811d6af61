// Package markup renders chat messages as HTML for the web page and as
// styled text for the terminal.
package markup

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/glamour"
	nethtml "golang.org/x/net/html"
)

var (
	urlPattern    = regexp.MustCompile(`https?://[^\s]+`)
	imagePattern  = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|gif)$`)
	questionLabel = regexp.MustCompile(`(Q\d+:)`)
	answerLabel   = regexp.MustCompile(`(Answer:)`)
)

// RenderBot converts an assistant reply to HTML. Text outside URLs is
// escaped; image URLs become <img>, other URLs become links; newlines
// become <br>; quiz question and answer labels are bolded on a new line.
func RenderBot(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		b.WriteString(formatText(text[last:loc[0]]))
		b.WriteString(renderURL(text[loc[0]:loc[1]]))
		last = loc[1]
	}
	b.WriteString(formatText(text[last:]))
	return b.String()
}

// RenderUser escapes a user message without any substitution.
func RenderUser(text string) string {
	return html.EscapeString(text)
}

func IsImageURL(url string) bool {
	return imagePattern.MatchString(url) || strings.Contains(url, "/api/images/")
}

func renderURL(url string) string {
	escaped := html.EscapeString(url)
	if IsImageURL(url) {
		return fmt.Sprintf(`<img src="%s" alt="image" style="max-width: 100%%; border-radius: 8px;">`, escaped)
	}
	return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, escaped, escaped)
}

func formatText(segment string) string {
	out := html.EscapeString(segment)
	out = strings.ReplaceAll(out, "\n", "<br>")
	out = questionLabel.ReplaceAllString(out, "<br><b>$1</b>")
	return answerLabel.ReplaceAllString(out, "<br><b>$1</b>")
}

// PlainText returns the visible text of an HTML fragment, with <br> as a
// line break. It is what gets read aloud.
func PlainText(fragment string) string {
	doc, err := nethtml.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	var b strings.Builder
	collectText(doc, &b)
	return strings.TrimSpace(b.String())
}

func collectText(n *nethtml.Node, b *strings.Builder) {
	switch {
	case n.Type == nethtml.TextNode:
		b.WriteString(n.Data)
		return
	case n.Type == nethtml.ElementNode && n.Data == "br":
		b.WriteString("\n")
		return
	case n.Type == nethtml.ElementNode && (n.Data == "script" || n.Data == "style"):
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// Terminal renders bot HTML as styled terminal text.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal builds a renderer wrapping at width. An empty style picks
// one from the terminal background.
func NewTerminal(width int, style string) (*Terminal, error) {
	if width < 20 {
		width = 20
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	return &Terminal{renderer: r}, nil
}

// Render converts fragment to markdown and styles it. On failure it falls
// back to PlainText.
func (t *Terminal) Render(fragment string) string {
	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return PlainText(fragment)
	}
	out, err := t.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
