package crawler

import (
	"context"
	"fmt"
	"time"

	"sjsage522/promoradar/config"
	"sjsage522/promoradar/internal/promo"
	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/services/cache"
)

const maxErrorLength = 120

// BrandScanner fetches a brand page and runs the promo extractor on it
type BrandScanner struct {
	BaseCrawler
	extractor *promo.Extractor
}

// NewBrandScanner creates a scanner. A nil fetcher uses helpers.FetchWithRandomHeaders and
// a nil cache disables the block window.
func NewBrandScanner(extractor *promo.Extractor, fetcher Fetcher, cacheSvc cache.CacheService, timeout, blockTime time.Duration) *BrandScanner {
	return &BrandScanner{
		BaseCrawler: BaseCrawler{
			Fetcher:   fetcher,
			CacheSvc:  cacheSvc,
			BlockTime: blockTime,
			Timeout:   timeout,
		},
		extractor: extractor,
	}
}

// Scan visits the brand page. Fetch, parse and extraction failures end up in record.Error.
func (s *BrandScanner) Scan(ctx context.Context, brand config.BrandTarget) (record DealRecord) {
	record = DealRecord{
		Brand:        brand.Name,
		URL:          brand.URL,
		AffiliateURL: brand.AffiliateURL,
		Category:     brand.Category,
		Tags:         brand.Tags,
	}
	log := logger.ForScanner(brand.Name)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Extraction panicked")
			record = failed(record, fmt.Errorf("extraction panicked: %v", r))
		}
	}()

	body, err := s.fetchWithCache(ctx, brand.Name, brand.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Fetch failed")
		return failed(record, err)
	}

	doc, err := s.createDocument(brand.Name, body)
	if err != nil {
		log.Warn().Err(err).Msg("Parse failed")
		return failed(record, err)
	}

	res := s.extractor.Extract(doc, brand.URL)
	record.Promo = res.Promo
	record.Discount = res.Discount
	record.Code = res.Code
	record.EmailOffer = res.EmailOffer
	record.Image = res.Image

	if record.Promo != "" {
		log.Info().Str("promo", record.Promo).Str("code", record.Code).Msg("Found promo")
	} else {
		log.Debug().Int("candidates", len(res.Candidates)).Msg("No active promo")
	}
	return record
}

func failed(record DealRecord, err error) DealRecord {
	msg := []rune(err.Error())
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}
	record.Error = string(msg)
	return record
}
