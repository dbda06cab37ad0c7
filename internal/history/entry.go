// Package history keeps the identity and freshness state of every deal seen across cycles.
package history

import (
	"strings"
	"time"
)

const (
	keyTextLength = 100
	previewLength = 80
	keySeparator  = "::"
)

// Entry is the persisted state of one deal
type Entry struct {
	FirstSeen    time.Time  `json:"first_seen"`
	LastSeen     time.Time  `json:"last_seen"`
	TimesSeen    int        `json:"times_seen"`
	Expires      *time.Time `json:"expires,omitempty"`
	Brand        string     `json:"brand"`
	PromoPreview string     `json:"promo_preview"`
}

// Key returns the canonical identity of a deal: the lowercased brand name plus the first
// 100 characters of the whitespace-collapsed, lowercased promo text
func Key(brand, promoText string) string {
	text := []rune(strings.ToLower(strings.Join(strings.Fields(promoText), " ")))
	if len(text) > keyTextLength {
		text = text[:keyTextLength]
	}
	return strings.ToLower(strings.TrimSpace(brand)) + keySeparator + string(text)
}

func preview(promoText string) string {
	text := []rune(strings.Join(strings.Fields(promoText), " "))
	if len(text) > previewLength {
		text = text[:previewLength]
	}
	return string(text)
}
