package radar

import (
	"context"
	"time"

	"sjsage522/promoradar/internal/history"
	"sjsage522/promoradar/internal/snapshot"
	"sjsage522/promoradar/logger"
)

// observer records each deal key at most once per cycle
type observer struct {
	ctx     context.Context
	tracker *history.Tracker
	log     *logger.Logger
	now     time.Time

	seen    map[string]struct{}
	entries map[string]history.Entry
}

func newObserver(ctx context.Context, tracker *history.Tracker, log *logger.Logger, now time.Time) *observer {
	return &observer{
		ctx:     ctx,
		tracker: tracker,
		log:     log,
		now:     now,
		seen:    make(map[string]struct{}),
		entries: make(map[string]history.Entry),
	}
}

func (o *observer) observe(brand, text string) {
	key := history.Key(brand, text)
	if _, ok := o.seen[key]; ok {
		return
	}
	o.seen[key] = struct{}{}

	e, err := o.tracker.Upsert(o.ctx, key, text, brand, o.now)
	if err != nil {
		// the deal is still reported, as if seen for the first time
		o.log.Warn().Err(err).Str("brand", brand).Msg("History update failed")
		o.entries[key] = history.Entry{FirstSeen: o.now, LastSeen: o.now, TimesSeen: 1, Brand: brand}
		return
	}

	if inferred, err := o.tracker.InferExpiration(o.ctx, key, text, o.now); err != nil {
		o.log.Warn().Err(err).Str("brand", brand).Msg("Expiry update failed")
	} else {
		e = inferred
	}
	o.entries[key] = e
}

// lifecycle returns the view of an observed deal, or false when it has expired
func (o *observer) lifecycle(brand, text string) (snapshot.Lifecycle, bool) {
	e, ok := o.entries[history.Key(brand, text)]
	if !ok {
		return snapshot.Lifecycle{}, false
	}

	f := o.tracker.Freshness(e, o.now)
	if f.IsExpired {
		return snapshot.Lifecycle{}, false
	}
	return snapshot.Lifecycle{
		FirstSeen: e.FirstSeen,
		LastSeen:  e.LastSeen,
		TimesSeen: e.TimesSeen,
		IsNew:     f.IsNew,
		IsStale:   f.IsStale,
		IsExpired: f.IsExpired,
		Expires:   e.Expires,
	}, true
}
