package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&ProcessingJob{ID: "j1", Status: StatusQueued})

	first, ok := store.Get("j1")
	require.True(t, ok)
	first.Status = StatusFailed
	first.Progress = 99

	second, ok := store.Get("j1")
	require.True(t, ok)
	assert.Equal(t, StatusQueued, second.Status)
	assert.Equal(t, 0, second.Progress)
}

func TestMemoryStore_UpdateAppliesUnderLock(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&ProcessingJob{ID: "j1", Status: StatusQueued})

	snapshot, ok := store.Update("j1", func(job *ProcessingJob) bool {
		job.Status = StatusProcessing
		job.Progress = 10
		return true
	})
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, snapshot.Status)

	declined, ok := store.Update("j1", func(job *ProcessingJob) bool {
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, StatusProcessing, declined.Status)

	_, ok = store.Update("missing", func(job *ProcessingJob) bool { return true })
	assert.False(t, ok)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	store.Put(&ProcessingJob{ID: "old", StartedAt: base.Add(-time.Hour)})
	store.Put(&ProcessingJob{ID: "new", StartedAt: base})

	listed := store.List()
	require.Len(t, listed, 2)
	assert.Equal(t, "new", listed[0].ID)
	assert.Equal(t, "old", listed[1].ID)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&ProcessingJob{ID: "j1"})
	store.Delete("j1")

	_, ok := store.Get("j1")
	assert.False(t, ok)
}

func TestDispatcher_StopRejectsNewTasks(t *testing.T) {
	d := NewDispatcher()

	ran := make(chan struct{})
	require.True(t, d.Dispatch(func() { close(ran) }))
	<-ran

	d.Stop()
	assert.False(t, d.Dispatch(func() { t.Fatal("must not run after stop") }))
}
