package promo

import (
	"github.com/PuerkitoBio/goquery"
)

// Options tunes extraction thresholds
type Options struct {
	// MaxPromoLength truncates the winning promo text
	MaxPromoLength int
	// MinScore is the score the best candidate must exceed
	MinScore int
	// HexGuardLength rejects pure-hex codes of exactly this length (0 disables the guard)
	HexGuardLength int
}

// DefaultOptions returns the built-in thresholds
func DefaultOptions() Options {
	return Options{
		MaxPromoLength: 200,
		MinScore:       10,
		HexGuardLength: 6,
	}
}

// Result is everything pulled from one brand page
type Result struct {
	Promo      string
	Discount   int
	Code       string
	EmailOffer string
	Image      string
	// Candidates holds every surviving candidate, best first
	Candidates []Candidate
}

// Extractor turns a parsed brand page into a Result
type Extractor struct {
	patterns *Patterns
	opts     Options
}

// NewExtractor creates an extractor. A nil table uses DefaultPatterns.
func NewExtractor(patterns *Patterns, opts Options) *Extractor {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &Extractor{patterns: patterns, opts: opts}
}

// Patterns returns the rule table in use
func (e *Extractor) Patterns() *Patterns {
	return e.patterns
}

// Extract runs the whole pipeline on doc. Offer zones are removed from doc, so the caller
// should not reuse it.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) Result {
	var res Result

	res.Image = resolveImage(doc, pageURL)

	// Capture signup and popup copy before it is removed from the working document
	offerTexts := e.captureZones(doc, e.patterns.OfferZones)
	emailBlocks := e.captureLines(doc, e.patterns.EmailZones)
	embedded := e.captureEmbedded(doc)
	e.removeZones(doc, e.patterns.OfferZones)

	candidates := e.collectCandidates(doc)
	rank(candidates)
	res.Candidates = candidates

	var winner string
	if top, ok := best(candidates, e.opts.MinScore); ok {
		winner = top.Text
		res.Promo = cleanText(top.Text, e.patterns.Affixes, e.opts.MaxPromoLength)
		res.Discount = e.patterns.MaxPercent(top.Text)
	}

	res.Code = e.findMentionedCode(append([]string{winner}, offerTexts...)...)
	if res.Code == "" {
		res.Code = e.findEmbeddedCode(embedded)
	}

	res.EmailOffer = e.findEmailOffer(emailBlocks)
	return res
}

// ExtractText runs the text-only stages on a single piece of copy: junk filter, score,
// cleaning, discount and explicit code
func (e *Extractor) ExtractText(text string) (Result, bool) {
	text = normalizeSpace(text)
	if !e.patterns.HasPromoIntent(text) || e.patterns.IsJunk(text) {
		return Result{}, false
	}
	c := Candidate{Text: text, Zone: "text", Score: e.patterns.Score(text)}
	if _, ok := best([]Candidate{c}, e.opts.MinScore); !ok {
		return Result{Candidates: []Candidate{c}}, false
	}
	return Result{
		Promo:      cleanText(text, e.patterns.Affixes, e.opts.MaxPromoLength),
		Discount:   e.patterns.MaxPercent(text),
		Code:       e.findMentionedCode(text),
		Candidates: []Candidate{c},
	}, true
}
