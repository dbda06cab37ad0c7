package promo

import "strings"

const maxOfferLength = 100

// findEmailOffer returns the first offer fragment from a block that pairs a money cue with a
// subscription cue. Fragments are matched line by line so they never run into form labels.
func (e *Extractor) findEmailOffer(blocks [][]string) string {
	for _, lines := range blocks {
		block := strings.Join(lines, " ")
		if !e.patterns.MoneyCue.MatchString(block) || !e.patterns.SubscriptionCue.MatchString(block) {
			continue
		}
		for _, re := range e.patterns.OfferFragments {
			for _, line := range lines {
				if fragment := re.FindString(line); fragment != "" {
					return cleanText(fragment, e.patterns.Affixes, maxOfferLength)
				}
			}
		}
	}
	return ""
}
