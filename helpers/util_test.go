package helpers

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"v":1}`), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte(`{"v":2}`), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	// no temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(attempt int) error {
		calls++
		if attempt < 2 {
			return stderrors.New("disk full")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = RetryWithBackoff(context.Background(), 2, time.Millisecond, func(int) error {
		calls++
		return stderrors.New("disk full")
	})
	assert.ErrorContains(t, err, "failed after 2 retries: disk full")
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithBackoff(ctx, 5, time.Hour, func(int) error {
		calls++
		return stderrors.New("disk full")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
