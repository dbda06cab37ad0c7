package promo

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// pageRoots are never treated as a zone even when their class matches a zone selector,
// e.g. <body class="modal-open">
const pageRoots = "html, body, main"

const blockElements = "p, div, li, h1, h2, h3, h4, h5, h6"

// zoneElements returns the elements a zone reads, capped at its limit
func (e *Extractor) zoneElements(doc *goquery.Document, zone Zone) []*goquery.Selection {
	var out []*goquery.Selection
	doc.Find(zone.Selector).Not(pageRoots).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if zone.TextScan {
			if !e.hasDiscountCue(s.Get(0)) || s.Closest(e.patterns.StripSelectors).Length() > 0 {
				return true
			}
			s = enclosingBlock(s)
		}
		out = append(out, s)
		return zone.Limit <= 0 || len(out) < zone.Limit
	})
	return out
}

// enclosingBlock widens an inline match such as <strong>25% off</strong> to the nearest
// block ancestor when its own text is too short to stand as a candidate
func enclosingBlock(s *goquery.Selection) *goquery.Selection {
	if textLen(nodeText(s)) >= minCandidateLength {
		return s
	}
	if block := s.Parent().Closest(blockElements).Not(pageRoots); block.Length() > 0 {
		return block
	}
	return s
}

func (e *Extractor) hasDiscountCue(n *html.Node) bool {
	if n == nil || skipText[n.Data] {
		return false
	}
	return e.patterns.DiscountCue.MatchString(ownText(n))
}

// collectCandidates reads every promo zone in order and keeps text that shows promo intent
// and survives the junk filter. Identical text found by several zones is kept once.
func (e *Extractor) collectCandidates(doc *goquery.Document) []Candidate {
	var candidates []Candidate
	seen := make(map[string]bool)

	for _, zone := range e.patterns.PromoZones {
		for _, s := range e.zoneElements(doc, zone) {
			text := e.strippedText(s)
			if text == "" || seen[text] {
				continue
			}
			seen[text] = true

			if !e.patterns.HasPromoIntent(text) || e.patterns.IsJunk(text) {
				continue
			}
			candidates = append(candidates, Candidate{
				Text:  text,
				Zone:  zone.Label,
				Score: e.patterns.Score(text),
			})
		}
	}
	return candidates
}

// captureZones returns the text of every element matched by zones. Signup copy often sits
// inside a form, so nothing is stripped here or in captureLines.
func (e *Extractor) captureZones(doc *goquery.Document, zones []Zone) []string {
	var texts []string
	for _, zone := range zones {
		for _, s := range e.zoneElements(doc, zone) {
			if text := nodeText(s); text != "" {
				texts = append(texts, text)
			}
		}
	}
	return texts
}

// captureLines returns the text lines of every element matched by zones, one slice per element
func (e *Extractor) captureLines(doc *goquery.Document, zones []Zone) [][]string {
	var blocks [][]string
	for _, zone := range zones {
		for _, s := range e.zoneElements(doc, zone) {
			if lines := textLines(s); len(lines) > 0 {
				blocks = append(blocks, lines)
			}
		}
	}
	return blocks
}

// removeZones drops every element matched by zones from the working document
func (e *Extractor) removeZones(doc *goquery.Document, zones []Zone) {
	for _, zone := range zones {
		doc.Find(zone.Selector).Not(pageRoots).Remove()
	}
}
