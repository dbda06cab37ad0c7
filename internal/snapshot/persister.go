package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"sjsage522/promoradar/helpers"
	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/pkg/errors"
)

// Persister writes the snapshot with write-temp-then-rename, retrying failed writes
type Persister struct {
	path    string
	retries int
	backoff time.Duration
}

// NewPersister creates a persister for path
func NewPersister(path string, retries int) *Persister {
	return &Persister{path: path, retries: retries, backoff: time.Second}
}

// WithBackoff sets the first retry delay
func (p *Persister) WithBackoff(d time.Duration) *Persister {
	p.backoff = d
	return p
}

// Path returns the snapshot location
func (p *Persister) Path() string {
	return p.path
}

// Save replaces the snapshot atomically
func (p *Persister) Save(ctx context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.NewPersistence("failed to encode snapshot", err)
	}

	err = helpers.RetryWithBackoff(ctx, p.retries, p.backoff, func(attempt int) error {
		if err := helpers.WriteFileAtomic(p.path, data, 0o644); err != nil {
			logger.ForSnapshot().Warn().Err(err).Int("attempt", attempt+1).Msg("Snapshot write failed")
			return err
		}
		return nil
	})
	if err != nil {
		return errors.NewPersistence("failed to write snapshot "+p.path, err)
	}
	return nil
}

// Load reads the current snapshot
func (p *Persister) Load() (*Document, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewPersistence("snapshot is corrupt", err)
	}
	return &doc, nil
}

// LastCycle returns the cycle counter of the current snapshot, or 0 when there is none
func (p *Persister) LastCycle() int64 {
	doc, err := p.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			logger.ForSnapshot().Warn().Err(err).Msg("Cannot recover cycle counter, starting from 0")
		}
		return 0
	}
	return doc.Cycle
}
