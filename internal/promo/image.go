package promo

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var logoImages = []string{
	`header [class*="logo"] img`,
	`header [id*="logo"] img`,
	`header img[class*="logo"]`,
	`header img[alt*="logo"]`,
	`header img[alt*="Logo"]`,
	`[class*="logo"] img`,
	`[id*="logo"] img`,
	`img[class*="logo"]`,
	`[class*="brand"] img`,
	`[id*="brand"] img`,
}

var headerImages = `header img, [role="banner"] img`

var touchIcons = `link[rel="apple-touch-icon"], link[rel="apple-touch-icon-precomposed"]`

var favicons = `link[rel~="icon"]`

var ogImages = `meta[property="og:image"], meta[name="og:image"]`

// resolveImage walks the fallback chain and returns the first usable absolute image URL
func resolveImage(doc *goquery.Document, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		base = nil
	}

	for _, sel := range logoImages {
		if img := firstImage(doc.Find(sel), base); img != "" {
			return img
		}
	}
	if img := firstImage(doc.Find(headerImages), base); img != "" {
		return img
	}
	if img := firstAttr(doc.Find(touchIcons), "href", base, nil); img != "" {
		return img
	}
	if img := firstAttr(doc.Find(favicons), "href", base, isSmallFavicon); img != "" {
		return img
	}
	return firstAttr(doc.Find(ogImages), "content", base, nil)
}

// firstImage reads src, lazy-load attributes or the first srcset entry of each img in order
func firstImage(sel *goquery.Selection, base *url.URL) string {
	var found string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
			if v, ok := s.Attr(attr); ok {
				if found = normalizeURL(v, base); found != "" {
					return false
				}
			}
		}
		if v, ok := s.Attr("srcset"); ok {
			if found = normalizeURL(firstSrcset(v), base); found != "" {
				return false
			}
		}
		return true
	})
	return found
}

func firstAttr(sel *goquery.Selection, attr string, base *url.URL, skip func(*goquery.Selection, string) bool) string {
	var found string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		if !ok {
			return true
		}
		u := normalizeURL(v, base)
		if u == "" || (skip != nil && skip(s, u)) {
			return true
		}
		found = u
		return false
	})
	return found
}

func isSmallFavicon(s *goquery.Selection, resolved string) bool {
	sizes, _ := s.Attr("sizes")
	lower := strings.ToLower(resolved)
	for _, px := range []string{"16x16", "32x32"} {
		if strings.Contains(sizes, px) || strings.Contains(lower, px) {
			return true
		}
	}
	if strings.Contains(lower, "favicon-16") || strings.Contains(lower, "favicon-32") {
		return true
	}
	if u, err := url.Parse(lower); err == nil {
		return strings.HasSuffix(u.Path, ".ico")
	}
	return strings.HasSuffix(lower, ".ico")
}

func firstSrcset(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// normalizeURL resolves protocol-relative and root-relative references against base and
// rejects data URIs
func normalizeURL(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}
