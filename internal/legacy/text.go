package legacy

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// PlainText returns the visible text of a narrative field, dropping any markup
// pasted into it and collapsing whitespace.
func PlainText(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(trimmed))
	if err != nil {
		return strings.Join(strings.Fields(trimmed), " ")
	}

	var builder strings.Builder
	collectText(&builder, doc)

	return strings.Join(strings.Fields(builder.String()), " ")
}

// Excerpt returns at most limit runes of the plain text, ending in an ellipsis when cut.
func Excerpt(content string, limit int) string {
	text := PlainText(content)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := strings.TrimRight(string(runes[:limit]), " ")
	if space := strings.LastIndex(cut, " "); space > len(cut)/2 {
		cut = cut[:space]
	}
	return cut + "…"
}

func collectText(builder *strings.Builder, node *html.Node) {
	if node == nil {
		return
	}

	switch node.Type {
	case html.TextNode:
		builder.WriteString(node.Data)
		builder.WriteByte(' ')
		return
	case html.ElementNode:
		if strings.EqualFold(node.Data, "script") || strings.EqualFold(node.Data, "style") {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(builder, child)
	}
}
