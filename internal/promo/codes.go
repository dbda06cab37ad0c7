package promo

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// acceptCode applies the stoplist, prose and color-code guards and returns the normalized code
func (e *Extractor) acceptCode(token string) (string, bool) {
	token = strings.TrimSpace(token)
	n := len(token)
	if n < 4 || n > 15 {
		return "", false
	}
	if _, stop := e.patterns.CodeStoplist[strings.ToLower(token)]; stop {
		return "", false
	}

	hasDigit, hasUpper, allHex := false, false, true
	for _, r := range token {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			return "", false
		}
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			allHex = false
		}
	}
	// lowercase words are prose, not codes
	if !hasDigit && !hasUpper {
		return "", false
	}
	if e.opts.HexGuardLength > 0 && n == e.opts.HexGuardLength && allHex {
		return "", false
	}
	return strings.ToUpper(token), true
}

// findMentionedCode looks for a code right after an explicit keyword in each text, in order
func (e *Extractor) findMentionedCode(texts ...string) string {
	re := e.patterns.CodeMention
	for _, text := range texts {
		pos := 0
		for pos < len(text) {
			loc := re.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				break
			}
			if !e.negated(text[:pos+loc[0]]) {
				if code, ok := e.acceptCode(text[pos+loc[2] : pos+loc[3]]); ok {
					return code
				}
			}
			// resume at the rejected token so "use code SAVE20" still reaches "code SAVE20"
			pos += loc[2]
		}
	}
	return ""
}

// negated reports whether the word right before a code keyword cancels it
func (e *Extractor) negated(before string) bool {
	words := strings.Fields(before)
	if len(words) == 0 {
		return false
	}
	last := strings.ToLower(strings.Trim(words[len(words)-1], `"'“‘(`))
	for _, neg := range e.patterns.CodeNegations {
		if last == neg {
			return true
		}
	}
	return false
}

// embeddedSources holds inline script payloads and copy-button values captured from a page
type embeddedSources struct {
	scripts    []string
	attributes []string
}

// captureEmbedded collects marketing scripts and copy-button attributes in document order
func (e *Extractor) captureEmbedded(doc *goquery.Document) embeddedSources {
	var src embeddedSources

	doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		payload := s.Text()
		lower := strings.ToLower(payload)
		for _, hint := range e.patterns.ScriptHints {
			if strings.Contains(lower, hint) {
				src.scripts = append(src.scripts, payload)
				return
			}
		}
	})

	selectors := make([]string, 0, len(e.patterns.CopyAttributes))
	for _, attr := range e.patterns.CopyAttributes {
		selectors = append(selectors, "["+attr+"]")
	}
	doc.Find(strings.Join(selectors, ", ")).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range e.patterns.CopyAttributes {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				src.attributes = append(src.attributes, v)
			}
		}
	})
	return src
}

// findEmbeddedCode mines script assignments, qualified names first, then copy-button attributes
func (e *Extractor) findEmbeddedCode(src embeddedSources) string {
	for _, re := range e.patterns.ScriptCodeProps {
		for _, script := range src.scripts {
			for _, m := range re.FindAllStringSubmatch(script, -1) {
				if code, ok := e.acceptCode(m[1]); ok {
					return code
				}
			}
		}
	}
	for _, v := range src.attributes {
		if code, ok := e.acceptCode(v); ok {
			return code
		}
	}
	return ""
}
