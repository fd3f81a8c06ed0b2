package common

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SourceNameFromURL derives a publisher name from an article link's host.
// "https://www.reuters.com/markets/x" -> "reuters.com". Returns "" when link has no host.
func SourceNameFromURL(link string) string {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// PlainText strips markup from an article body and collapses whitespace.
// Text without a tag is returned trimmed.
func PlainText(content string) string {
	if !strings.Contains(content, "<") {
		return collapseSpace(content)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return collapseSpace(content)
	}
	doc.Find("script, style, noscript").Remove()

	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
