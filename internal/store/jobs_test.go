package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegate/notify-api/internal/model"
	"github.com/sitegate/notify-api/internal/store"
)

func TestCreateAndGet(t *testing.T) {
	s := store.NewJobStore()
	id := s.Create(model.ChannelEmail, 3)
	require.NotEmpty(t, id)

	job, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, 3, job.Total)
	assert.Zero(t, job.SuccessCount)
	assert.Zero(t, job.FailedCount)
	assert.Empty(t, job.Errors)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestGetUnknownJob(t *testing.T) {
	s := store.NewJobStore()
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordOutcomes(t *testing.T) {
	s := store.NewJobStore()
	id := s.Create(model.ChannelEmail, 3)

	require.NoError(t, s.RecordSuccess(id))
	require.NoError(t, s.RecordFailure(id, "w-2", "mailbox full"))
	require.NoError(t, s.RecordSuccess(id))

	job, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 1, job.FailedCount)
	require.Len(t, job.Errors, job.FailedCount)
	assert.Equal(t, "w-2", job.Errors[0].Recipient)
	assert.Equal(t, "mailbox full", job.Errors[0].Message)
}

func TestFinalizeIsTerminal(t *testing.T) {
	s := store.NewJobStore()
	id := s.Create(model.ChannelEmail, 1)

	require.NoError(t, s.MarkProcessing(id))
	require.NoError(t, s.RecordSuccess(id))
	require.NoError(t, s.Finalize(id, model.JobStatusCompleted))

	job, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)

	// No transition out of a terminal state, and no further mutation.
	assert.ErrorIs(t, s.Finalize(id, model.JobStatusCancelled), store.ErrConflict)
	assert.ErrorIs(t, s.RecordSuccess(id), store.ErrConflict)
	assert.ErrorIs(t, s.RecordFailure(id, "x", "y"), store.ErrConflict)
	assert.ErrorIs(t, s.MarkProcessing(id), store.ErrConflict)

	after, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, job.SuccessCount, after.SuccessCount)
	assert.Equal(t, job.CompletedAt, after.CompletedAt)
}

func TestFinalizeRejectsNonTerminalStatus(t *testing.T) {
	s := store.NewJobStore()
	id := s.Create(model.ChannelEmail, 1)
	assert.Error(t, s.Finalize(id, model.JobStatusProcessing))
}

func TestRequestCancel(t *testing.T) {
	s := store.NewJobStore()
	id := s.Create(model.ChannelEmail, 2)

	assert.False(t, s.CancelRequested(id))
	require.NoError(t, s.RequestCancel(id))
	assert.True(t, s.CancelRequested(id))

	// Idempotent while running.
	require.NoError(t, s.RequestCancel(id))
	assert.True(t, s.CancelRequested(id))

	require.NoError(t, s.Finalize(id, model.JobStatusCancelled))
	assert.ErrorIs(t, s.RequestCancel(id), store.ErrConflict)
}

func TestRequestCancelUnknownJob(t *testing.T) {
	s := store.NewJobStore()
	assert.ErrorIs(t, s.RequestCancel("nope"), store.ErrNotFound)
}

// 100 goroutines recording outcomes against one job must not lose a single
// increment, regardless of interleaving.
func TestConcurrentRecordsLoseNothing(t *testing.T) {
	s := store.NewJobStore()
	id := s.Create(model.ChannelEmail, 100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				_ = s.RecordFailure(id, "r", "boom")
			} else {
				_ = s.RecordSuccess(id)
			}
		}(i)
	}
	wg.Wait()

	job, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 100, job.SuccessCount+job.FailedCount)
	assert.Len(t, job.Errors, job.FailedCount)
}

func TestSnapshotIsConsistentUnderWrites(t *testing.T) {
	s := store.NewJobStore()
	id := s.Create(model.ChannelEmail, 200)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = s.RecordFailure(id, "r", "boom")
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		job, err := s.Get(id)
		require.NoError(t, err)
		// errors.length == failedCount must hold at every point in time.
		require.Len(t, job.Errors, job.FailedCount)
		require.LessOrEqual(t, job.SuccessCount+job.FailedCount, job.Total)

		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("writer did not finish")
		default:
		}
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	s := store.NewJobStore()
	id := s.Create(model.ChannelEmail, 10)

	last := -1
	for i := 0; i < 10; i++ {
		require.NoError(t, s.RecordSuccess(id))
		job, err := s.Get(id)
		require.NoError(t, err)
		p := job.ProgressPercent()
		require.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Equal(t, 100, last)
}
