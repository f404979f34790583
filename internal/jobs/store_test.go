package jobs

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_Create(t *testing.T) {
	store := newTestStore()

	job := store.Create("https://example.com/article", "", true)

	_, err := uuid.Parse(job.ID)
	require.NoError(t, err, "job id should be a valid UUID")

	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, "https://example.com/article", job.URL)
	assert.True(t, job.UploadRequested)
	assert.Empty(t, job.Title)
	assert.Equal(t, job.CreatedAt, job.UpdatedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestStore_Get(t *testing.T) {
	store := newTestStore()
	created := store.Create("https://example.com", "Custom", false)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = store.Get("unknown-id")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStore_Update_PatchAdditive(t *testing.T) {
	store := newTestStore()
	job := store.Create("https://example.com", "", true)

	store.Update(job.ID, StatusProcessing, Patch{Title: String("Foo")})
	store.Update(job.ID, StatusProcessing, Patch{PDFPath: String("/tmp/foo.pdf")})

	// A status-only update must not clear previously set fields.
	store.Update(job.ID, StatusCompleted, Patch{})

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "Foo", got.Title)
	assert.Equal(t, "/tmp/foo.pdf", got.PDFPath)
}

func TestStore_Update_CompletedAt(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		terminal bool
	}{
		{name: "processing is not terminal", status: StatusProcessing, terminal: false},
		{name: "completed is terminal", status: StatusCompleted, terminal: true},
		{name: "failed is terminal", status: StatusFailed, terminal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			job := store.Create("https://example.com", "", true)

			store.Update(job.ID, tt.status, Patch{})

			got, err := store.Get(job.ID)
			require.NoError(t, err)
			if tt.terminal {
				require.NotNil(t, got.CompletedAt)
			} else {
				assert.Nil(t, got.CompletedAt)
			}
		})
	}
}

func TestStore_Update_CompletedAtSetOnce(t *testing.T) {
	store := newTestStore()
	job := store.Create("https://example.com", "", true)

	store.Update(job.ID, StatusFailed, Patch{Error: String("boom")})
	first, err := store.Get(job.ID)
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)

	// Advance the clock; a second terminal update must not move the
	// completion timestamp.
	store.now = func() time.Time { return time.Now().Add(time.Hour) }
	store.Update(job.ID, StatusFailed, Patch{})

	second, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
}

func TestStore_Update_UnknownIDIsNoOp(t *testing.T) {
	store := newTestStore()
	store.Create("https://example.com", "", true)

	require.NotPanics(t, func() {
		store.Update("unknown-id", StatusCompleted, Patch{PDFPath: String("/tmp/x.pdf")})
	})
	assert.Len(t, store.Snapshot(), 1)
}

func TestStore_Delete_Idempotent(t *testing.T) {
	store := newTestStore()
	job := store.Create("https://example.com", "", true)

	store.Delete(job.ID)
	_, err := store.Get(job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NotPanics(t, func() {
		store.Delete(job.ID)
	})
}

func TestStore_Snapshot_DoesNotAliasStore(t *testing.T) {
	store := newTestStore()
	job := store.Create("https://example.com", "Original", true)

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)

	// Mutating the snapshot must not leak into the store.
	mutated := snapshot[job.ID]
	mutated.Title = "Mutated"
	snapshot[job.ID] = mutated
	delete(snapshot, "whatever")

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
}

func TestStore_EvictOlderThan_Boundary(t *testing.T) {
	store := newTestStore()
	maxAge := time.Hour

	old := store.Create("https://example.com/old", "", true)
	fresh := store.Create("https://example.com/fresh", "", true)

	now := time.Now().UTC()
	store.mu.Lock()
	store.jobs[old.ID].CreatedAt = now.Add(-maxAge - time.Second)
	store.jobs[fresh.ID].CreatedAt = now.Add(-maxAge + time.Second)
	store.mu.Unlock()
	store.now = func() time.Time { return now }

	store.EvictOlderThan(maxAge)

	_, err := store.Get(old.ID)
	assert.ErrorIs(t, err, ErrJobNotFound, "job older than max age should be evicted")

	_, err = store.Get(fresh.ID)
	assert.NoError(t, err, "job within max age should be retained")
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := newTestStore()

	const workers = 16
	var wg sync.WaitGroup
	ids := make([]string, workers)
	for i := range ids {
		ids[i] = store.Create(fmt.Sprintf("https://example.com/%d", i), "", true).ID
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			store.Update(id, StatusProcessing, Patch{})
			store.Update(id, StatusProcessing, Patch{PDFPath: String("/tmp/out.pdf")})
			store.Update(id, StatusCompleted, Patch{})
		}(ids[i])

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = store.Get(id)
				_ = store.Snapshot()
			}
		}(ids[i])
	}
	wg.Wait()

	for _, id := range ids {
		job, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, job.Status)
		assert.Equal(t, "/tmp/out.pdf", job.PDFPath)
		assert.NotNil(t, job.CompletedAt)
	}
}
