package promo

import (
	"sort"
	"strconv"
)

// Score weights
const (
	percentWeight      = 30
	dollarWeight       = 20
	keywordWeight      = 10
	explicitCodeWeight = 25
	boilerplatePenalty = 15
	longPenalty        = 10
	veryLongPenalty    = 20
	sweetSpotBonus     = 10
)

// Score ranks candidate text; higher means more likely to be the sitewide promo
func (p *Patterns) Score(text string) int {
	text = normalizeSpace(text)
	score := 0

	if p.Percent.MatchString(text) {
		score += percentWeight
	}
	if p.Dollar.MatchString(text) {
		score += dollarWeight
	}
	for _, re := range p.Boost {
		if re.MatchString(text) {
			score += keywordWeight
		}
	}
	if p.ExplicitCode.MatchString(text) {
		score += explicitCodeWeight
	}
	score -= boilerplatePenalty * p.boilerplateCount(text)

	n := textLen(text)
	if n > 150 {
		score -= longPenalty
	}
	if n > 200 {
		score -= veryLongPenalty
	}
	if n > 30 && n < 100 {
		score += sweetSpotBonus
	}
	return score
}

// HasPromoIntent reports whether text matches at least one promo-intent pattern
func (p *Patterns) HasPromoIntent(text string) bool {
	for _, re := range p.PromoIntent {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// MaxPercent returns the largest N% value in text, or 0
func (p *Patterns) MaxPercent(text string) int {
	best := 0
	for _, m := range p.Percent.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil && v <= 100 && v > best {
			best = v
		}
	}
	return best
}

// Candidate is one piece of zone text considered for a brand's promo
type Candidate struct {
	Text  string
	Zone  string
	Score int
}

// rank orders candidates by score, keeping zone order among equal scores
func rank(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

// best returns the top candidate when its score exceeds minScore
func best(candidates []Candidate, minScore int) (Candidate, bool) {
	if len(candidates) == 0 || candidates[0].Score <= minScore {
		return Candidate{}, false
	}
	return candidates[0], true
}
