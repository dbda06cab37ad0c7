package promo

import (
	"regexp"
	"strings"
)

// Zone is a selector likely to hold promotional copy
type Zone struct {
	Label    string
	Selector string
	// Limit caps how many matched elements are read
	Limit int
	// TextScan matches elements whose own text nodes carry a discount cue instead of reading
	// every element the selector returns
	TextScan bool
}

// Patterns is the table of zones, regexes and keyword lists the extractor runs on.
// A table is never modified after DefaultPatterns returns it; build a new one to swap rules.
type Patterns struct {
	// Zones in priority order: bars, then hero/sale sections, then the body text scan
	PromoZones []Zone
	// OfferZones are captured for code mining and then removed from the working document
	OfferZones []Zone
	// EmailZones are the newsletter/signup subset of OfferZones used for email offers
	EmailZones []Zone
	// StripSelectors removes nested navigation and interactive elements before text is read
	StripSelectors string

	PromoIntent  []*regexp.Regexp
	Percent      *regexp.Regexp
	Dollar       *regexp.Regexp
	DiscountCue  *regexp.Regexp
	ExplicitCode *regexp.Regexp
	Boost        []*regexp.Regexp
	Boilerplate  []*regexp.Regexp
	Separators   string
	Affixes      []string

	CodeMention  *regexp.Regexp
	CodeStoplist map[string]struct{}
	// CodeNegations cancel a code keyword they directly precede ("no code needed")
	CodeNegations   []string
	ScriptHints     []string
	ScriptCodeProps []*regexp.Regexp
	CopyAttributes  []string

	MoneyCue        *regexp.Regexp
	SubscriptionCue *regexp.Regexp
	OfferFragments  []*regexp.Regexp
}

// phrases compiles case-insensitive, word-bounded matchers for each entry
func phrases(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`(?i)\b`+w+`\b`))
	}
	return out
}

func bars(limit int, selectors ...string) []Zone {
	zones := make([]Zone, 0, len(selectors))
	for _, s := range selectors {
		zones = append(zones, Zone{Label: s, Selector: s, Limit: limit})
	}
	return zones
}

var seasonalSales = []string{
	`black\s+friday`, `cyber\s+monday`, `memorial\s+day`, `labor\s+day`, `presidents'?\s+day`,
	`(?:4th|fourth)\s+of\s+july`, `father'?s\s+day`, `mother'?s\s+day`, `boxing\s+day`,
	`holiday\s+sale`, `summer\s+sale`, `spring\s+sale`, `fall\s+sale`, `winter\s+sale`,
	`end\s+of\s+season`, `semi-annual\s+sale`,
}

// DefaultPatterns returns the built-in rule table
func DefaultPatterns() *Patterns {
	promoZones := bars(3,
		`[class*="announcement"]`,
		`[id*="announcement"]`,
		`[class*="promo-bar"]`,
		`[class*="top-bar"]`,
		`[class*="topbar"]`,
		`[class*="banner"]`,
		`[class*="marquee"]`,
		`[class*="ticker"]`,
		`[class*="hero"]`,
		`[class*="sale"]`,
		`[class*="promo"]`,
	)
	promoZones = append(promoZones, Zone{Label: "body-text", Selector: "body *", Limit: 25, TextScan: true})

	emailZones := bars(5,
		`[class*="newsletter"]`,
		`[id*="newsletter"]`,
		`[class*="signup"]`,
		`[class*="sign-up"]`,
		`[class*="subscribe"]`,
		`[id*="subscribe"]`,
		`[class*="klaviyo"]`,
	)
	offerZones := append([]Zone{}, emailZones...)
	offerZones = append(offerZones, bars(5,
		`[class*="popup"]`,
		`[id*="popup"]`,
		`[class*="modal"]`,
		`[role="dialog"]`,
	)...)

	intent := []string{
		`\d{1,3}\s?%\s*off`,
		`(?:up\s+to|extra|save|take)\s+\d{1,3}\s?%`,
		`save\s*\$?\d+`,
		`\$\s?\d+(?:\.\d{2})?\s*off`,
		`free\s+shipping`,
		`code[:\s]+[a-z0-9]{4,}`,
		`site-?wide`,
		`limited[\s-]time`,
		`flash\s+sale`,
		`\bbogo\b`,
		`buy\s+(?:one|1),?\s+get\s+(?:one|1)`,
		`clearance`,
		`final\s+sale`,
	}
	intent = append(intent, seasonalSales...)
	promoIntent := make([]*regexp.Regexp, 0, len(intent))
	for _, p := range intent {
		promoIntent = append(promoIntent, regexp.MustCompile(`(?i)`+p))
	}

	boost := []string{
		`off`, `sav(?:e|ings)`, `discounts?`, `deals?`, `sales?`, `codes?`, `promos?`,
		`free\s+shipping`, `gifts?`, `extra`, `clearance`, `final`, `limited`, `today`,
		`ends`, `last\s+chance`, `hurry`, `bogo`,
	}
	boost = append(boost, seasonalSales...)

	stoplist := make(map[string]struct{})
	for _, w := range strings.Fields(`
		code codes coupon coupons promo promos today tonight here your this that only sale sales
		offer offers free true false null none undefined checkout online cart sitewide when with
		from shop apply enter below above email signup order orders first valid required
		discount details more save welcome expired invalid copied copy needed necessary
		applied applies automatically exclusions ends`) {
		stoplist[w] = struct{}{}
	}

	return &Patterns{
		PromoZones:     promoZones,
		OfferZones:     offerZones,
		EmailZones:     emailZones,
		StripSelectors: `nav, button, select, input, form, script, style, noscript, svg, [role="navigation"], [role="menu"]`,

		PromoIntent:  promoIntent,
		Percent:      regexp.MustCompile(`(\d{1,3})\s?%`),
		Dollar:       regexp.MustCompile(`\$\s?\d+(?:[.,]\d+)?`),
		DiscountCue:  regexp.MustCompile(`(?i)\d{1,3}\s?%|\$\s?\d+(?:\.\d{2})?\s*off`),
		ExplicitCode: regexp.MustCompile(`(?i:\b(?:code|coupon|promo))\s*:?\s*([A-Z0-9]{4,15})\b`),
		Boost:        phrases(boost...),
		Boilerplate: phrases(
			`sign\s+in`, `log\s+in`, `login`, `my\s+account`, `account`, `cart`, `wishlist`,
			`search`, `menu`, `help`, `contact\s+us`, `customer\s+service`, `store\s+locator`,
			`find\s+a\s+store`, `track\s+(?:my\s+)?order`, `skip\s+to\s+(?:main\s+)?content`,
			`instagram`, `facebook`, `twitter`, `tiktok`, `youtube`, `pinterest`,
			`privacy(?:\s+policy)?`, `terms(?:\s+(?:of\s+use|and\s+conditions|&\s+conditions))?`,
			`cookies?`, `country`, `region`, `currency`, `language`,
		),
		Separators: "|•·",
		Affixes: []string{
			"shop now", "shop the sale", "shop sale", "shop all", "learn more", "see details",
			"view details", "details", "click here",
		},

		CodeMention: regexp.MustCompile(
			`(?i)\b(?:with\s+code|promo\s+code|coupon\s+code|discount\s+code|code|coupon|promo|use|enter|apply)\b\s*[:\-]?\s*["'“‘]?([A-Za-z0-9]{4,15})\b`),
		CodeStoplist:  stoplist,
		CodeNegations: []string{"no", "without"},
		ScriptHints: []string{
			"klaviyo", "privy", "justuno", "attentive", "optinmonster", "optimonk", "wheelio",
			"wisepops", "omnisend", "mailchimp", "popup", "spin",
		},
		ScriptCodeProps: []*regexp.Regexp{
			regexp.MustCompile(`(?i)["']?\b(?:welcome|first[_-]?order|exit(?:[_-]?intent)?|wheel|spin)[_-]?(?:discount[_-]?)?(?:code|coupon)["']?\s*[:=]\s*["']([A-Za-z0-9]{4,15})["']`),
			regexp.MustCompile(`(?i)["']?\b(?:discount[_-]?code|coupon[_-]?code|promo[_-]?code|code|coupon|prize|reward)["']?\s*[:=]\s*["']([A-Za-z0-9]{4,15})["']`),
		},
		CopyAttributes: []string{
			"data-clipboard-text", "data-copy", "data-code", "data-coupon-code", "data-discount-code",
		},

		MoneyCue:        regexp.MustCompile(`\d{1,3}\s?%|\$\s?\d+`),
		SubscriptionCue: regexp.MustCompile(`(?i)\b(?:sign|join|subscrib\w*|e-?mail|newsletter|first\s+(?:order|purchase)|welcome)`),
		OfferFragments: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\d{1,3}\s?%\s*off[^.!\n]{0,60}`),
			regexp.MustCompile(`(?i)save\s+\d{1,3}\s?%[^.!\n]{0,60}`),
			regexp.MustCompile(`(?i)get\s+\d{1,3}\s?%[^.!\n]{0,60}`),
			regexp.MustCompile(`(?i)free\s+shipping[^.!\n]{0,60}`),
			regexp.MustCompile(`(?i)\$\s?\d+(?:\.\d{2})?\s*off[^.!\n]{0,60}`),
		},
	}
}
