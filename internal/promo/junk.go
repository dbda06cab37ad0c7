package promo

import (
	"strings"
	"unicode"
)

const (
	minCandidateLength  = 15
	maxCandidateLength  = 300
	maxBoilerplateCount = 2
	minBoilerplateWords = 8
	maxSeparators       = 2
	shoutingLength      = 50
)

// IsJunk reports whether text looks like navigation, account chrome or legal boilerplate
func (p *Patterns) IsJunk(text string) bool {
	text = normalizeSpace(text)
	n := textLen(text)
	if n < minCandidateLength || n > maxCandidateLength {
		return true
	}

	boilerplate := p.boilerplateCount(text)
	if boilerplate > maxBoilerplateCount {
		return true
	}
	if boilerplate > 0 && wordCount(text) < minBoilerplateWords {
		return true
	}

	separators := 0
	for _, r := range text {
		if strings.ContainsRune(p.Separators, r) {
			separators++
		}
	}
	if separators > maxSeparators {
		return true
	}

	return n > shoutingLength && isUpperCase(text)
}

// boilerplateCount counts every occurrence of every boilerplate phrase
func (p *Patterns) boilerplateCount(text string) int {
	count := 0
	for _, re := range p.Boilerplate {
		count += len(re.FindAllStringIndex(text, -1))
	}
	return count
}

func isUpperCase(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}
