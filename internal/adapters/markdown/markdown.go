// Package markdown renders user-written message bodies to safe HTML.
package markdown

import (
	"bytes"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in the input is escaped by goldmark (WithUnsafe is not set) and the
// output is sanitized again so links cannot carry javascript: URLs.
var renderer = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		policy = p
	})
	return policy
}

// Render converts markdown to sanitized HTML. On a render failure the input
// is returned HTML-escaped.
func Render(md string) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(md), &buf); err != nil {
		return html.EscapeString(md)
	}
	return strings.TrimSpace(sanitizer().Sanitize(buf.String()))
}

// PlainText strips markup from rendered markdown for email text parts and
// previews.
func PlainText(md string) string {
	text := bluemonday.StrictPolicy().Sanitize(Render(md))
	return strings.TrimSpace(html.UnescapeString(text))
}

// Preview returns at most n runes of PlainText, with an ellipsis when cut.
func Preview(md string, n int) string {
	text := strings.Join(strings.Fields(PlainText(md)), " ")
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
