package radar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sjsage522/promoradar/config"
	"sjsage522/promoradar/internal/crawler"
	"sjsage522/promoradar/internal/expiry"
	"sjsage522/promoradar/internal/history"
	"sjsage522/promoradar/internal/snapshot"
	"sjsage522/promoradar/pkg/errors"
	"sjsage522/promoradar/services/publisher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScanner returns canned records by URL and tracks concurrent scans
type fakeScanner struct {
	mu        sync.Mutex
	records   map[string]crawler.DealRecord
	delay     time.Duration
	onScan    func(brand config.BrandTarget)
	calls     int
	active    int
	maxActive int
}

var _ crawler.Scanner = (*fakeScanner)(nil)

func (s *fakeScanner) Scan(_ context.Context, brand config.BrandTarget) crawler.DealRecord {
	s.mu.Lock()
	s.calls++
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	rec := s.records[brand.URL]
	onScan := s.onScan
	s.mu.Unlock()

	if onScan != nil {
		onScan(brand)
	}

	time.Sleep(s.delay)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	rec.Brand = brand.Name
	rec.URL = brand.URL
	rec.AffiliateURL = brand.AffiliateURL
	return rec
}

func (s *fakeScanner) set(url string, rec crawler.DealRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[url] = rec
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu         sync.Mutex
	messages   map[string][][]byte
	trims      int
	publishErr error
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(_ context.Context, key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)
	m.messages[key] = append(m.messages[key], messageCopy)
	return nil
}

func (m *MockPublisher) Trim(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trims++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

type staticSource struct {
	name  string
	deals []snapshot.AffiliateDeal
	err   error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Deals(context.Context) ([]snapshot.AffiliateDeal, error) {
	return s.deals, s.err
}

type harness struct {
	dir       string
	scanner   *fakeScanner
	clock     *fakeClock
	store     *history.FileStore
	persister *snapshot.Persister
	runner    *Runner
}

func newHarness(t *testing.T, brands []config.BrandTarget, opts Options) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		dir:     dir,
		scanner: &fakeScanner{records: make(map[string]crawler.DealRecord)},
		clock:   &fakeClock{now: time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)},
		store:   history.OpenFileStore(filepath.Join(dir, "deal_history.json")),
	}
	h.persister = snapshot.NewPersister(filepath.Join(dir, "promo_data.json"), 0).WithBackoff(time.Millisecond)
	opts.Clock = h.clock.Now
	tracker := history.NewTracker(h.store, history.DefaultPolicy(), expiry.New(0))
	h.runner = NewRunner(brands, h.scanner, tracker, h.persister, opts)
	return h
}

func (h *harness) run(t *testing.T) *snapshot.Document {
	t.Helper()
	n, err := h.runner.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(h.runner.brands), n)
	doc, err := h.persister.Load()
	require.NoError(t, err)
	return doc
}

func (h *harness) entry(t *testing.T, brand, promo string) (history.Entry, bool) {
	t.Helper()
	e, ok, err := h.store.Get(context.Background(), history.Key(brand, promo))
	require.NoError(t, err)
	return e, ok
}

var golfBrands = []config.BrandTarget{
	{Name: "Rhoback", URL: "https://rhoback.com", AffiliateURL: "https://aff.example.com/rhoback", Category: "apparel"},
	{Name: "Swannies", URL: "https://swannies.co", Category: "apparel"},
}

func TestRunCycleLifecycle(t *testing.T) {
	const promo = "Extra 20% off polos with code SAVE20 on every order in the store"
	h := newHarness(t, golfBrands, Options{})
	h.scanner.set("https://rhoback.com", crawler.DealRecord{Promo: promo, Discount: 20, Code: "SAVE20"})
	h.scanner.set("https://swannies.co", crawler.DealRecord{EmailOffer: "15% off your first order"})
	t0 := h.clock.Now()

	doc := h.run(t)
	assert.Equal(t, int64(1), doc.Cycle)
	assert.True(t, doc.LastUpdated.Equal(t0))
	require.Len(t, doc.Promos, 1)
	deal := doc.Promos[0]
	assert.Equal(t, "Rhoback", deal.Brand)
	assert.Equal(t, 1, deal.TimesSeen)
	assert.True(t, deal.IsNew)
	assert.False(t, deal.IsStale)
	assert.Nil(t, deal.Expires)

	require.Len(t, doc.Codes, 1)
	code := doc.Codes[0]
	assert.Equal(t, "SAVE20", code.Code)
	assert.Equal(t, []rune(promo)[:50], []rune(code.Discount))
	assert.Equal(t, "https://aff.example.com/rhoback", code.AffiliateURL)
	assert.True(t, code.IsNew)

	require.Len(t, doc.EmailOffers, 1)
	assert.Equal(t, snapshot.EmailOffer{
		Brand:  "Swannies",
		Offer:  "15% off your first order",
		Method: "Website",
		URL:    "https://swannies.co",
	}, doc.EmailOffers[0])

	assert.Equal(t, snapshot.Stats{Brands: 2, Scanned: 2, Promos: 1, Codes: 1, EmailOffers: 1}, doc.Stats)

	h.clock.Advance(25 * time.Hour)
	doc = h.run(t)
	assert.Equal(t, int64(2), doc.Cycle)
	require.Len(t, doc.Promos, 1)
	deal = doc.Promos[0]
	assert.Equal(t, 2, deal.TimesSeen)
	assert.False(t, deal.IsNew)
	assert.True(t, deal.FirstSeen.Equal(t0))
	assert.True(t, deal.LastSeen.Equal(t0.Add(25*time.Hour)))

	h.clock.Advance(7 * 24 * time.Hour)
	doc = h.run(t)
	assert.True(t, doc.Promos[0].IsStale)
}

func TestRunCycleUpsertsDuplicateKeysOnce(t *testing.T) {
	brands := []config.BrandTarget{
		{Name: "Rhoback", URL: "https://rhoback.com", Category: "apparel"},
		{Name: "Rhoback", URL: "https://rhoback.com/collections/sale", Category: "apparel"},
	}
	h := newHarness(t, brands, Options{})
	h.scanner.set("https://rhoback.com", crawler.DealRecord{Promo: "25% off sitewide this week"})
	h.scanner.set("https://rhoback.com/collections/sale", crawler.DealRecord{Promo: "25%  OFF sitewide this week"})

	doc := h.run(t)
	assert.Len(t, doc.Promos, 2)

	e, ok := h.entry(t, "Rhoback", "25% off sitewide this week")
	require.True(t, ok)
	assert.Equal(t, 1, e.TimesSeen)
	assert.Equal(t, 1, h.store.Len())
}

func TestRunCycleExcludesExpiredDeals(t *testing.T) {
	const promo = "Today only: 30% off all drivers with code DRIVE30"
	h := newHarness(t, golfBrands[:1], Options{})
	h.scanner.set("https://rhoback.com", crawler.DealRecord{Promo: promo, Discount: 30, Code: "DRIVE30"})

	doc := h.run(t)
	require.Len(t, doc.Promos, 1)
	require.NotNil(t, doc.Promos[0].Expires)
	assert.True(t, doc.Promos[0].Expires.Equal(time.Date(2025, 10, 15, 23, 59, 59, 0, time.UTC)))
	require.Len(t, doc.Codes, 1)
	require.NotNil(t, doc.Codes[0].Expires)

	h.clock.Advance(23 * time.Hour)
	doc = h.run(t)
	assert.Empty(t, doc.Promos)
	assert.Empty(t, doc.Codes)
	assert.Zero(t, doc.Stats.Promos)

	// the entry is kept and still counted
	e, ok := h.entry(t, "Rhoback", promo)
	require.True(t, ok)
	assert.Equal(t, 2, e.TimesSeen)
}

func TestRunCycleEvictsUnseenDeals(t *testing.T) {
	h := newHarness(t, golfBrands[:1], Options{})
	h.scanner.set("https://rhoback.com", crawler.DealRecord{Promo: "Fall sale: 40% off outerwear"})
	h.run(t)

	h.scanner.set("https://rhoback.com", crawler.DealRecord{})
	h.clock.Advance(12 * time.Hour)
	doc := h.run(t)
	assert.Zero(t, doc.Stats.Evicted)
	_, ok := h.entry(t, "Rhoback", "Fall sale: 40% off outerwear")
	assert.True(t, ok, "unseen for less than a day")

	h.clock.Advance(13 * time.Hour)
	doc = h.run(t)
	assert.Equal(t, 1, doc.Stats.Evicted)
	_, ok = h.entry(t, "Rhoback", "Fall sale: 40% off outerwear")
	assert.False(t, ok)
}

func TestRunCycleCountsScanErrors(t *testing.T) {
	h := newHarness(t, golfBrands, Options{})
	h.scanner.set("https://rhoback.com", crawler.DealRecord{Error: "[network] Rhoback: failed to fetch"})
	h.scanner.set("https://swannies.co", crawler.DealRecord{Promo: "Buy 2 get 1 free on all hats"})

	doc := h.run(t)
	assert.Equal(t, 1, doc.Stats.Errors)
	assert.Equal(t, 1, doc.Stats.Scanned)
	require.Len(t, doc.Promos, 1)
	assert.Equal(t, "Swannies", doc.Promos[0].Brand)
}

func TestRunCycleAffiliateSources(t *testing.T) {
	good := staticSource{name: "network-a", deals: []snapshot.AffiliateDeal{{
		Brand:        "TravisMathew",
		Title:        "Up to 50% off Heater polos",
		URL:          "https://travismathew.com",
		AffiliateURL: "https://aff.example.com/tm",
		Source:       "network-a",
	}}}
	broken := staticSource{name: "network-b", err: fmt.Errorf("feed unavailable")}
	h := newHarness(t, golfBrands[:1], Options{Sources: []AffiliateSource{broken, good}})

	doc := h.run(t)
	require.Len(t, doc.AffiliateDeals, 1)
	deal := doc.AffiliateDeals[0]
	assert.Equal(t, "TravisMathew", deal.Brand)
	assert.True(t, deal.IsNew)
	assert.Equal(t, 1, deal.TimesSeen)

	_, ok := h.entry(t, "TravisMathew", "Up to 50% off Heater polos")
	assert.True(t, ok)
}

func TestRunCyclePublishesEvent(t *testing.T) {
	pub := NewMockPublisher()
	h := newHarness(t, golfBrands[:1], Options{Publisher: pub})
	h.scanner.set("https://rhoback.com", crawler.DealRecord{Promo: "Take 15% off everything with code FORE15", Code: "FORE15"})

	h.run(t)
	require.Len(t, pub.messages[EventKey], 1)
	assert.Equal(t, 1, pub.trims)

	var event CycleEvent
	require.NoError(t, json.Unmarshal(pub.messages[EventKey][0], &event))
	assert.Equal(t, int64(1), event.Cycle)
	assert.Equal(t, 1, event.Stats.Codes)

	// publishing is best effort
	pub.publishErr = errors.NewPublisher("stream down", nil)
	_, err := h.runner.RunCycle(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(2), h.runner.Cycle())
}

func TestRunCycleSnapshotFailure(t *testing.T) {
	h := newHarness(t, golfBrands[:1], Options{})
	blocker := filepath.Join(h.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	h.runner.persister = snapshot.NewPersister(filepath.Join(blocker, "promo_data.json"), 1).WithBackoff(time.Millisecond)

	_, err := h.runner.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePersistence))
	assert.Zero(t, h.runner.Cycle())
}

func TestRunnerRecoversCycleCounter(t *testing.T) {
	h := newHarness(t, golfBrands[:1], Options{})
	h.run(t)
	h.run(t)

	tracker := history.NewTracker(h.store, history.DefaultPolicy(), nil)
	restarted := NewRunner(golfBrands[:1], h.scanner, tracker, h.persister, Options{Clock: h.clock.Now})
	assert.Equal(t, int64(2), restarted.Cycle())

	_, err := restarted.RunCycle(context.Background())
	require.NoError(t, err)
	doc, err := h.persister.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.Cycle)
}

func TestRunCycleIsSerialized(t *testing.T) {
	h := newHarness(t, golfBrands, Options{})
	h.scanner.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.runner.RunCycle(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.scanner.maxActive)
	assert.Equal(t, 6, h.scanner.calls)
	assert.Equal(t, int64(3), h.runner.Cycle())
}

func TestRunCycleAbortsWhilePacing(t *testing.T) {
	h := newHarness(t, golfBrands, Options{ScanDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	n, err := h.runner.RunCycle(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, h.scanner.calls)

	_, statErr := os.Stat(h.persister.Path())
	assert.True(t, os.IsNotExist(statErr), "an aborted cycle writes nothing")
	assert.Zero(t, h.runner.Cycle())
}

func TestRunCycleAbortsWhenCancelledDuringLastScan(t *testing.T) {
	h := newHarness(t, golfBrands, Options{})
	h.scanner.set("https://rhoback.com", crawler.DealRecord{Promo: "Extra 20% off polos this week only"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.scanner.onScan = func(brand config.BrandTarget) {
		if brand.Name == "Swannies" {
			cancel()
		}
	}

	n, err := h.runner.RunCycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Equal(t, 2, h.scanner.calls)

	_, ok := h.entry(t, "Rhoback", "Extra 20% off polos this week only")
	assert.False(t, ok, "no history is recorded for an aborted cycle")
	_, statErr := os.Stat(h.persister.Path())
	assert.True(t, os.IsNotExist(statErr))
	assert.Zero(t, h.runner.Cycle())
}
