// Package radar runs a full scan cycle: scanning every brand, reconciling the results with the
// deal history and writing the snapshot.
package radar

import (
	"context"
	"encoding/json"
	"time"

	"sjsage522/promoradar/config"
	"sjsage522/promoradar/internal/crawler"
	"sjsage522/promoradar/internal/history"
	"sjsage522/promoradar/internal/snapshot"
	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/services/publisher"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// EventKey is the stream field carrying the base64 cycle event
	EventKey = "b64_cycle"

	codeDiscountLength = 50
)

// Clock returns the current time
type Clock func() time.Time

// AffiliateSource supplies deals from an affiliate network
type AffiliateSource interface {
	Name() string
	Deals(ctx context.Context) ([]snapshot.AffiliateDeal, error)
}

// Options holds the optional collaborators of a Runner
type Options struct {
	// ScanDelay is the minimum gap between two brand fetches
	ScanDelay time.Duration
	Clock     Clock
	Sources   []AffiliateSource
	Publisher publisher.Publisher
}

// CycleEvent is published after every successful cycle
type CycleEvent struct {
	Cycle       int64          `json:"cycle"`
	LastUpdated time.Time      `json:"lastUpdated"`
	Stats       snapshot.Stats `json:"stats"`
}

// Runner executes scan cycles. Concurrent RunCycle calls are serialized.
type Runner struct {
	brands    []config.BrandTarget
	scanner   crawler.Scanner
	tracker   *history.Tracker
	persister *snapshot.Persister
	sources   []AffiliateSource
	publisher publisher.Publisher
	clock     Clock

	sem     *semaphore.Weighted
	limiter *rate.Limiter
	cycle   int64
}

// NewRunner creates a runner. The cycle counter continues from the existing snapshot.
func NewRunner(brands []config.BrandTarget, scanner crawler.Scanner, tracker *history.Tracker, persister *snapshot.Persister, opts Options) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	limit := rate.Inf
	if opts.ScanDelay > 0 {
		limit = rate.Every(opts.ScanDelay)
	}

	return &Runner{
		brands:    brands,
		scanner:   scanner,
		tracker:   tracker,
		persister: persister,
		sources:   opts.Sources,
		publisher: opts.Publisher,
		clock:     clock,
		sem:       semaphore.NewWeighted(1),
		limiter:   rate.NewLimiter(limit, 1),
		cycle:     persister.LastCycle(),
	}
}

// Cycle returns the number of the last persisted cycle
func (r *Runner) Cycle() int64 {
	return r.cycle
}

// RunCycle scans all brands and writes a new snapshot. It returns the number of brands in the
// cycle. Only a snapshot that cannot be written is an error. A ctx cancelled before all brands
// are scanned aborts the cycle before anything is recorded.
func (r *Runner) RunCycle(ctx context.Context) (int, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer r.sem.Release(1)

	cycle := r.cycle + 1
	log := logger.ForCycle(cycle)
	log.Info().Int("brands", len(r.brands)).Msg("Cycle started")

	records := make([]crawler.DealRecord, 0, len(r.brands))
	for _, brand := range r.brands {
		if err := r.limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Msg("Cycle aborted while pacing fetches")
			return 0, err
		}
		records = append(records, r.scanner.Scan(ctx, brand))
	}
	// a shutdown during the last fetch leaves a cancelled record; record nothing
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Msg("Cycle aborted during scan")
		return 0, err
	}

	affiliates := r.collectAffiliates(ctx, log)
	now := r.clock()

	doc := r.reconcile(ctx, log, records, affiliates, now)
	doc.Cycle = cycle

	if err := r.persister.Save(ctx, doc); err != nil {
		log.Error().Err(err).Msg("Snapshot write failed")
		return 0, err
	}
	r.cycle = cycle

	log.Info().
		Int("scanned", doc.Stats.Scanned).
		Int("errors", doc.Stats.Errors).
		Int("promos", doc.Stats.Promos).
		Int("codes", doc.Stats.Codes).
		Int("email_offers", doc.Stats.EmailOffers).
		Msg("Cycle finished")

	r.publish(ctx, log, doc)
	return len(r.brands), nil
}

func (r *Runner) collectAffiliates(ctx context.Context, log *logger.Logger) []snapshot.AffiliateDeal {
	var deals []snapshot.AffiliateDeal
	for _, src := range r.sources {
		got, err := src.Deals(ctx)
		if err != nil {
			log.Warn().Err(err).Str("source", src.Name()).Msg("Affiliate source failed, skipping")
			continue
		}
		deals = append(deals, got...)
	}
	return deals
}

// reconcile records every distinct deal once, evicts the unseen, commits the store and builds
// the snapshot from the resulting lifecycle views
func (r *Runner) reconcile(ctx context.Context, log *logger.Logger, records []crawler.DealRecord, affiliates []snapshot.AffiliateDeal, now time.Time) *snapshot.Document {
	obs := newObserver(ctx, r.tracker, log, now)

	for _, rec := range records {
		if rec.Promo != "" {
			obs.observe(rec.Brand, rec.Promo)
		}
	}
	for _, deal := range affiliates {
		if deal.Title != "" {
			obs.observe(deal.Brand, deal.Title)
		}
	}

	evicted, err := r.tracker.Evict(ctx, obs.seen, now)
	if err != nil {
		log.Warn().Err(err).Msg("History eviction failed")
	}
	if err := r.tracker.Commit(ctx); err != nil {
		log.Warn().Err(err).Msg("History commit failed")
	}

	doc := &snapshot.Document{
		LastUpdated:    now,
		Promos:         []snapshot.FreshDeal{},
		Codes:          []snapshot.Code{},
		EmailOffers:    []snapshot.EmailOffer{},
		AffiliateDeals: []snapshot.FreshAffiliateDeal{},
		Stats:          snapshot.Stats{Brands: len(r.brands), Evicted: evicted},
	}

	for _, rec := range records {
		if rec.Error != "" {
			doc.Stats.Errors++
			continue
		}
		doc.Stats.Scanned++

		if rec.EmailOffer != "" {
			doc.EmailOffers = append(doc.EmailOffers, snapshot.EmailOffer{
				Brand:        rec.Brand,
				Offer:        rec.EmailOffer,
				Method:       snapshot.EmailOfferMethod,
				URL:          rec.URL,
				AffiliateURL: rec.AffiliateURL,
			})
		}

		if rec.Promo == "" {
			continue
		}
		life, ok := obs.lifecycle(rec.Brand, rec.Promo)
		if !ok {
			continue
		}
		doc.Promos = append(doc.Promos, snapshot.FreshDeal{DealRecord: rec, Lifecycle: life})
		if rec.Code != "" {
			doc.Codes = append(doc.Codes, snapshot.Code{
				Brand:        rec.Brand,
				Code:         rec.Code,
				Discount:     firstRunes(rec.Promo, codeDiscountLength),
				URL:          rec.URL,
				AffiliateURL: rec.AffiliateURL,
				IsNew:        life.IsNew,
				FirstSeen:    life.FirstSeen,
				Expires:      life.Expires,
			})
		}
	}

	for _, deal := range affiliates {
		if deal.Title == "" {
			continue
		}
		if life, ok := obs.lifecycle(deal.Brand, deal.Title); ok {
			doc.AffiliateDeals = append(doc.AffiliateDeals, snapshot.FreshAffiliateDeal{AffiliateDeal: deal, Lifecycle: life})
		}
	}

	doc.Stats.Promos = len(doc.Promos)
	doc.Stats.Codes = len(doc.Codes)
	doc.Stats.EmailOffers = len(doc.EmailOffers)
	return doc
}

func (r *Runner) publish(ctx context.Context, log *logger.Logger, doc *snapshot.Document) {
	if r.publisher == nil {
		return
	}

	data, err := json.Marshal(CycleEvent{Cycle: doc.Cycle, LastUpdated: doc.LastUpdated, Stats: doc.Stats})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode cycle event")
		return
	}
	if err := r.publisher.Publish(ctx, EventKey, data); err != nil {
		log.Warn().Err(err).Msg("Failed to publish cycle event")
		return
	}
	if err := r.publisher.Trim(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to trim event stream")
	}
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
