package history

import (
	"context"
	"time"

	"sjsage522/promoradar/internal/expiry"
	"sjsage522/promoradar/logger"
)

// Policy holds the freshness windows
type Policy struct {
	// NewWindow: a deal first seen less than this long ago is new
	NewWindow time.Duration
	// StaleWindow: a deal first seen more than this long ago is stale
	StaleWindow time.Duration
	// EvictWindow: an unseen deal whose last sighting is older than this is deleted
	EvictWindow time.Duration
}

// DefaultPolicy returns the 24h / 7d / 24h windows
func DefaultPolicy() Policy {
	return Policy{
		NewWindow:   24 * time.Hour,
		StaleWindow: 7 * 24 * time.Hour,
		EvictWindow: 24 * time.Hour,
	}
}

// Freshness is the derived, never persisted view of an entry at a point in time
type Freshness struct {
	IsNew     bool
	IsStale   bool
	IsExpired bool
}

// Tracker applies the deal lifecycle rules on top of a Store
type Tracker struct {
	store    Store
	policy   Policy
	inferrer *expiry.Inferencer
}

// NewTracker creates a tracker. A nil inferencer uses the default limited-time window.
func NewTracker(store Store, policy Policy, inferrer *expiry.Inferencer) *Tracker {
	if inferrer == nil {
		inferrer = expiry.New(0)
	}
	return &Tracker{store: store, policy: policy, inferrer: inferrer}
}

// Store returns the underlying store
func (t *Tracker) Store() Store {
	return t.store
}

// Upsert records a sighting of key at now
func (t *Tracker) Upsert(ctx context.Context, key, promoText, brand string, now time.Time) (Entry, error) {
	e, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return Entry{}, err
	}

	if !ok {
		e = Entry{
			FirstSeen:    now,
			LastSeen:     now,
			TimesSeen:    1,
			Brand:        brand,
			PromoPreview: preview(promoText),
		}
	} else {
		// a clock that moved backwards never rewinds last_seen
		if now.After(e.LastSeen) {
			e.LastSeen = now
		}
		if e.LastSeen.Before(e.FirstSeen) {
			e.LastSeen = e.FirstSeen
		}
		e.TimesSeen++
	}

	if err := t.store.Put(ctx, key, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// InferExpiration sets the expiry of key from promoText when it is not set yet. The returned
// entry reflects the stored state.
func (t *Tracker) InferExpiration(ctx context.Context, key, promoText string, now time.Time) (Entry, error) {
	e, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok || e.Expires != nil {
		return e, err
	}

	expires, found := t.inferrer.Infer(promoText, now)
	if !found {
		return e, nil
	}
	e.Expires = &expires
	if err := t.store.Put(ctx, key, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Freshness derives the flags of e at now
func (t *Tracker) Freshness(e Entry, now time.Time) Freshness {
	age := now.Sub(e.FirstSeen)
	return Freshness{
		IsNew:     age < t.policy.NewWindow,
		IsStale:   age > t.policy.StaleWindow,
		IsExpired: e.Expires != nil && now.After(*e.Expires),
	}
}

// Evict deletes entries absent from seen whose last sighting is older than the evict window.
// Expiry plays no part. It returns the number of deleted entries.
func (t *Tracker) Evict(ctx context.Context, seen map[string]struct{}, now time.Time) (int, error) {
	victims := make(map[string]struct{})
	err := t.store.Iterate(ctx, func(key string, e Entry) bool {
		if _, ok := seen[key]; ok {
			return true
		}
		if now.Sub(e.LastSeen) > t.policy.EvictWindow {
			victims[key] = struct{}{}
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	for key := range victims {
		if err := t.store.Delete(ctx, key); err != nil {
			return 0, err
		}
	}
	if len(victims) > 0 {
		logger.ForHistory().Debug().Int("evicted", len(victims)).Msg("Evicted unseen deals")
	}
	return len(victims), nil
}

// Commit makes the cycle's changes durable
func (t *Tracker) Commit(ctx context.Context) error {
	return t.store.Commit(ctx)
}
