// Package snapshot defines the per-cycle document read by the serving layer and writes it
// durably.
package snapshot

import (
	"time"

	"sjsage522/promoradar/internal/crawler"
)

// EmailOfferMethod is the only signup channel the scanner knows about
const EmailOfferMethod = "Website"

// Lifecycle is the derived freshness view of a deal at the time of the cycle
type Lifecycle struct {
	FirstSeen time.Time  `json:"first_seen"`
	LastSeen  time.Time  `json:"last_seen"`
	TimesSeen int        `json:"times_seen"`
	IsNew     bool       `json:"is_new"`
	IsStale   bool       `json:"is_stale"`
	IsExpired bool       `json:"is_expired"`
	Expires   *time.Time `json:"expires,omitempty"`
}

// FreshDeal is a scanned record with its lifecycle
type FreshDeal struct {
	crawler.DealRecord
	Lifecycle
}

// AffiliateDeal is a deal supplied by an affiliate network rather than scanned
type AffiliateDeal struct {
	Brand        string `json:"brand"`
	Title        string `json:"title"`
	Code         string `json:"code,omitempty"`
	URL          string `json:"url"`
	AffiliateURL string `json:"affiliate_url"`
	Source       string `json:"source"`
}

// FreshAffiliateDeal is an affiliate deal with its lifecycle
type FreshAffiliateDeal struct {
	AffiliateDeal
	Lifecycle
}

// Code is one promo code entry
type Code struct {
	Brand        string     `json:"brand"`
	Code         string     `json:"code"`
	Discount     string     `json:"discount"`
	URL          string     `json:"url"`
	AffiliateURL string     `json:"affiliate_url,omitempty"`
	IsNew        bool       `json:"is_new"`
	FirstSeen    time.Time  `json:"first_seen"`
	Expires      *time.Time `json:"expires,omitempty"`
}

// EmailOffer is a signup-gated offer
type EmailOffer struct {
	Brand        string `json:"brand"`
	Offer        string `json:"offer"`
	Method       string `json:"method"`
	URL          string `json:"url"`
	AffiliateURL string `json:"affiliate_url,omitempty"`
}

// Stats summarizes a cycle
type Stats struct {
	Brands      int `json:"brands"`
	Scanned     int `json:"scanned"`
	Errors      int `json:"errors"`
	Promos      int `json:"promos"`
	Codes       int `json:"codes"`
	EmailOffers int `json:"emailOffers"`
	Evicted     int `json:"evicted"`
}

// Document is the whole snapshot written once per cycle
type Document struct {
	LastUpdated    time.Time            `json:"lastUpdated"`
	Cycle          int64                `json:"cycle"`
	Promos         []FreshDeal          `json:"promos"`
	Codes          []Code               `json:"codes"`
	EmailOffers    []EmailOffer         `json:"emailOffers"`
	AffiliateDeals []FreshAffiliateDeal `json:"affiliateDeals"`
	Stats          Stats                `json:"stats"`
}
