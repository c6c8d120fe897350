// Package htmltext extracts plain text from HTML fragments, used for
// word-count based metrics on generated article bodies.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"svg": true, "iframe": true,
}

// Extract returns the visible text of an HTML fragment with elements
// separated by whitespace. Invalid HTML falls back to the raw input.
func Extract(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var sb strings.Builder
	walk(doc, &sb)
	return strings.TrimSpace(sb.String())
}

// WordCount returns the number of whitespace-delimited tokens in the
// visible text of an HTML fragment.
func WordCount(fragment string) int {
	return len(strings.Fields(Extract(fragment)))
}

func walk(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sb)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "p", "li", "br", "div":
			sb.WriteString("\n")
		}
	}
}
