package render

import (
	"strings"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
)

// blockTags start a new line when opened or closed.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"title": true, "pre": true, "hr": true, "table": true,
}

// skipTags have content that is never shown to a reader.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// HTMLToText reduces an HTML document, typically a proxy or server error
// page, to plain text wrapped at width. Whitespace runs collapse to one
// space and blank lines collapse to one.
func HTMLToText(raw string, width int) string {
	if raw == "" {
		return ""
	}

	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var sb strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return wrapText(collapseLines(sb.String()), width)

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipTags[tag] && tt == xhtml.StartTagToken {
				skipDepth++
				continue
			}
			if blockTags[tag] {
				sb.WriteString("\n")
			}

		case xhtml.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipTags[tag] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if blockTags[tag] {
				sb.WriteString("\n")
			}

		case xhtml.TextToken:
			if skipDepth > 0 {
				continue
			}
			sb.Write(tokenizer.Text())
		}
	}
}

// LooksLikeHTML reports whether body appears to be an HTML document rather
// than JSON or plain text.
func LooksLikeHTML(body string) bool {
	s := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html") ||
		strings.Contains(s, "<body")
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}

// collapseLines trims every line, collapses inner whitespace and drops
// blank lines.
func collapseLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// wrapText performs simple word wrapping to the given width.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var result strings.Builder
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}
		lineLen := 0
		for i, word := range words {
			wlen := utf8.RuneCountInString(word)
			if i > 0 && lineLen+1+wlen > width {
				result.WriteString("\n")
				lineLen = 0
			} else if i > 0 {
				result.WriteString(" ")
				lineLen++
			}
			result.WriteString(word)
			lineLen += wlen
		}
		result.WriteString("\n")
	}
	return strings.TrimRight(result.String(), "\n")
}

// Wrap word-wraps plain text to width.
func Wrap(text string, width int) string {
	return wrapText(text, width)
}
