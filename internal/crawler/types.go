package crawler

import (
	"context"
	"io"
	"time"

	"sjsage522/promoradar/config"
)

// DealRecord is what one brand showed in one cycle. It is never changed after Scan returns.
type DealRecord struct {
	Brand        string   `json:"brand"`
	URL          string   `json:"url"`
	AffiliateURL string   `json:"affiliate_url,omitempty"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags,omitempty"`
	Promo        string   `json:"promo,omitempty"`
	Discount     int      `json:"discount,omitempty"`
	Code         string   `json:"code,omitempty"`
	EmailOffer   string   `json:"email_offer,omitempty"`
	Image        string   `json:"image,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Scanner interface defines the contract for brand scanners
type Scanner interface {
	// Scan visits the brand page and returns its record. Failures are recorded on the
	// record instead of being returned.
	Scan(ctx context.Context, brand config.BrandTarget) DealRecord
}

// Fetcher retrieves a page body as UTF-8
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (io.Reader, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, url string, timeout time.Duration) (io.Reader, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, url string, timeout time.Duration) (io.Reader, error) {
	return f(ctx, url, timeout)
}
