package promo

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// skipText lists elements whose text nodes are never part of visible copy
var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// collectText appends every visible text node below n
func collectText(n *html.Node, parts []string) []string {
	if n.Type == html.ElementNode && skipText[n.Data] {
		return parts
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			parts = append(parts, t)
		}
		return parts
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		parts = collectText(c, parts)
	}
	return parts
}

// nodeText joins the text nodes of every node in the selection with single spaces
func nodeText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		parts = collectText(n, parts)
	}
	return normalizeSpace(strings.Join(parts, " "))
}

// lineBreaks are elements that start a new line of copy
var lineBreaks = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "section": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "br": true,
	"label": true, "button": true, "input": true, "select": true, "textarea": true,
	"table": true, "tr": true, "td": true,
}

// textLines splits the visible text of sel into lines at block and form-control boundaries
func textLines(sel *goquery.Selection) []string {
	var lines, cur []string
	flush := func() {
		if line := normalizeSpace(strings.Join(cur, " ")); line != "" {
			lines = append(lines, line)
		}
		cur = cur[:0]
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				cur = append(cur, t)
			}
			return
		case html.ElementNode:
			if skipText[n.Data] {
				return
			}
			if lineBreaks[n.Data] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
		flush()
	}
	return lines
}

// ownText returns only the direct text children of n
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return normalizeSpace(b.String())
}

// strippedText reads the text of sel after removing nested navigation and controls
func (e *Extractor) strippedText(sel *goquery.Selection) string {
	// Clone the selection to avoid modifying the working document
	clone := sel.Clone()
	clone.Find(e.patterns.StripSelectors).Remove()
	return nodeText(clone)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// wordCount counts whitespace-separated tokens that carry a letter or digit, so separators
// such as "|" are not words
func wordCount(s string) int {
	n := 0
	for _, f := range strings.Fields(s) {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			n++
		}
	}
	return n
}

func textLen(s string) int {
	return utf8.RuneCountInString(s)
}

const affixTrim = " \t-–—|:›→»>•·"

// stripAffixes removes call-to-action wording from either end until nothing changes
func stripAffixes(text string, affixes []string) string {
	for {
		before := text
		for _, a := range affixes {
			if hasPrefixFold(text, a) && boundaryAt(text, len(a)) {
				text = strings.TrimLeft(text[len(a):], affixTrim)
			}
			if hasSuffixFold(text, a) && boundaryBefore(text, len(text)-len(a)) {
				text = strings.TrimRight(text[:len(text)-len(a)], affixTrim)
			}
		}
		text = strings.Trim(text, affixTrim)
		if text == before {
			return text
		}
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func boundaryAt(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryBefore(s string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// dedupePunctuation collapses runs of the same punctuation rune ("!!!" -> "!", "..." stays "...")
func dedupePunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev && unicode.IsPunct(r) {
			run++
			// keep ellipses intact
			if r == '.' && run <= 3 {
				b.WriteRune(r)
			}
			continue
		}
		prev = r
		run = 1
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts s to max runes and marks the cut with "..."
func truncate(s string, max int) string {
	if max <= 0 || textLen(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max]), " ") + "..."
}

// cleanText prepares extracted copy for output
func cleanText(text string, affixes []string, max int) string {
	text = normalizeSpace(text)
	text = stripAffixes(text, affixes)
	text = dedupePunctuation(text)
	return truncate(text, max)
}
