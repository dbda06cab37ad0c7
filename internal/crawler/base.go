package crawler

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"sjsage522/promoradar/helpers"
	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/pkg/errors"
	"sjsage522/promoradar/services/cache"

	"github.com/PuerkitoBio/goquery"
)

const blockKeyPrefix = "promoradar:block:"

// BaseCrawler provides fetching with a per-brand block window after rate limiting
type BaseCrawler struct {
	Fetcher   Fetcher
	CacheSvc  cache.CacheService
	BlockTime time.Duration
	Timeout   time.Duration
}

// defaultFetcher is the randomized-header HTTP fetch
var defaultFetcher = FetcherFunc(helpers.FetchWithRandomHeaders)

// fetchWithCache fetches a URL unless the brand is inside its block window. A rate-limited
// response opens a new window.
func (c *BaseCrawler) fetchWithCache(ctx context.Context, brand, url string) (io.Reader, error) {
	key := blockKey(brand)

	// Check if the brand is rate limited
	if c.CacheSvc != nil {
		_, err := c.CacheSvc.Get(key)
		if err == nil {
			return nil, errors.NewBlocked(brand, c.BlockTime)
		}
		if !cache.IsMiss(err) {
			logger.ForCache().Debug().Err(err).Str("brand", brand).Msg("Block cache unavailable, fetching anyway")
		}
	}

	fetcher := c.Fetcher
	if fetcher == nil {
		fetcher = defaultFetcher
	}

	// Fetch the page
	body, err := fetcher.Fetch(ctx, url, c.Timeout)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeRateLimit) && c.CacheSvc != nil && c.BlockTime > 0 {
			// Set rate limiting cache
			value := []byte(strconv.Itoa(int(c.BlockTime / time.Second)))
			if cerr := c.CacheSvc.Set(key, value, c.BlockTime); cerr != nil {
				logger.ForCache().Warn().Err(cerr).Str("brand", brand).Msg("Failed to open block window")
			}
		}
		return nil, errors.WithBrand(err, brand)
	}

	return body, nil
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(brand string, reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, errors.NewParsing(brand, "failed to parse HTML", err)
	}
	return doc, nil
}

// blockKey turns a brand name into a memcache-safe key
func blockKey(brand string) string {
	slug := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToLower(r)
		}
		return '-'
	}, strings.TrimSpace(brand))
	return blockKeyPrefix + slug
}
