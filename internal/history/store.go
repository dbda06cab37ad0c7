package history

import "context"

// Store persists history entries by key. Implementations are used by one cycle at a time.
type Store interface {
	// Get returns the entry for key and whether it exists
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Put creates or replaces the entry for key
	Put(ctx context.Context, key string, entry Entry) error
	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// Iterate calls fn for every entry until fn returns false
	Iterate(ctx context.Context, fn func(key string, entry Entry) bool) error
	// Commit makes all changes since the last commit durable
	Commit(ctx context.Context) error
}
