package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
	"github.com/stretchr/testify/require"
)

func fastQueue(t *testing.T, st store.Store) *WriteQueue {
	t.Helper()
	q, _ := recordingQueue(t, st)
	return q
}

// storedLog collects the ids passed to OnStored.
type storedLog struct {
	mu  sync.Mutex
	ids []uint64
}

func (l *storedLog) add(_ context.Context, u domain.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, u.ID)
}

func (l *storedLog) get() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.ids)
}

func recordingQueue(t *testing.T, st store.Store) (*WriteQueue, *storedLog) {
	t.Helper()
	log := &storedLog{}
	q := NewWriteQueue(st, WriteQueueOptions{
		FirstRetryDelay: time.Millisecond,
		RetryInterval:   5 * time.Millisecond,
		OnStored:        log.add,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})
	return q, log
}

func queuedUser(id uint64) domain.User {
	return domain.User{
		ID:        id,
		Username:  fmt.Sprintf("user%d", id),
		EmailHash: []byte(fmt.Sprintf("fp%d", id)),
	}
}

func TestWriteQueue_SaveFirstTry(t *testing.T) {
	st := newMemStore()
	q, log := recordingQueue(t, st)

	stored, err := q.SaveWithRetry(context.Background(), queuedUser(1))
	require.NoError(t, err)
	require.True(t, stored)
	require.Equal(t, 1, st.count())
	require.Equal(t, int64(1), st.creates.Load())
	require.Equal(t, 0, q.Len())
	require.Empty(t, log.get(), "direct saves are not announced")
}

func TestWriteQueue_RetryOnceThenQueue(t *testing.T) {
	st := newMemStore()
	st.failing.Store(true)
	q, log := recordingQueue(t, st)

	stored, err := q.SaveWithRetry(context.Background(), queuedUser(1))
	require.NoError(t, err)
	require.False(t, stored, "only buffered")
	require.GreaterOrEqual(t, st.creates.Load(), int64(2), "immediate insert plus one retry")
	require.Equal(t, 0, st.count())

	require.Eventually(t, func() bool { return st.bulkCalls.Load() >= 1 }, time.Second, time.Millisecond)
	require.Equal(t, 1, q.Len())
	require.True(t, q.Draining())

	st.failing.Store(false)
	require.Eventually(t, func() bool { return q.Len() == 0 && !q.Draining() }, time.Second, time.Millisecond)
	_, ok := st.get(1)
	require.True(t, ok)
	require.Equal(t, 1, st.count())
	require.Equal(t, []uint64{1}, log.get())
}

func TestWriteQueue_ConflictIsNotQueued(t *testing.T) {
	st := newMemStore()
	q := fastQueue(t, st)

	_, err := q.SaveWithRetry(context.Background(), queuedUser(1))
	require.NoError(t, err)

	dup := queuedUser(2)
	dup.Username = "user1"
	stored, err := q.SaveWithRetry(context.Background(), dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.False(t, stored)
	require.Equal(t, 0, q.Len())
	require.False(t, q.Draining())
}

func TestWriteQueue_GhostCommitIsNotDuplicated(t *testing.T) {
	st := newMemStore()
	st.ghostCommit.Store(true)
	q := fastQueue(t, st)

	stored, err := q.SaveWithRetry(context.Background(), queuedUser(1))
	require.NoError(t, err)
	require.True(t, stored)
	require.Equal(t, 1, st.count())
	require.Equal(t, 0, q.Len())
}

func TestWriteQueue_SingleDrainer(t *testing.T) {
	st := newMemStore()
	st.failing.Store(true)
	q := fastQueue(t, st)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			q.EnqueueFailed(queuedUser(id))
		}(uint64(i + 1))
	}
	wg.Wait()

	require.Eventually(t, func() bool { return st.bulkCalls.Load() >= 3 }, time.Second, time.Millisecond)
	st.failing.Store(false)

	require.Eventually(t, func() bool { return q.Len() == 0 && !q.Draining() }, time.Second, time.Millisecond)
	require.Equal(t, 50, st.count())
	require.Equal(t, int64(1), st.maxInTx.Load(), "bulk inserts never overlapped")
}

func TestWriteQueue_DrainerRestarts(t *testing.T) {
	st := newMemStore()
	q := fastQueue(t, st)

	q.EnqueueFailed(queuedUser(1))
	require.Eventually(t, func() bool { return q.Len() == 0 && !q.Draining() }, time.Second, time.Millisecond)

	st.failing.Store(true)
	q.EnqueueFailed(queuedUser(2))
	require.True(t, q.Draining())

	st.failing.Store(false)
	require.Eventually(t, func() bool { return q.Len() == 0 && !q.Draining() }, time.Second, time.Millisecond)
	require.Equal(t, 2, st.count())
}

func TestWriteQueue_ConflictInBatchIsDropped(t *testing.T) {
	st := newMemStore()
	q, log := recordingQueue(t, st)
	_, err := q.SaveWithRetry(context.Background(), queuedUser(1))
	require.NoError(t, err)

	st.failing.Store(true)
	clash := queuedUser(3)
	clash.Username = "user1"
	q.EnqueueFailed(queuedUser(2))
	q.EnqueueFailed(clash)
	q.EnqueueFailed(queuedUser(4))
	st.failing.Store(false)

	require.Eventually(t, func() bool { return q.Len() == 0 && !q.Draining() }, time.Second, time.Millisecond)
	require.Equal(t, 3, st.count())
	_, ok := st.get(3)
	require.False(t, ok)
	require.ElementsMatch(t, []uint64{2, 4}, log.get(), "dropped records are not announced")
}

func TestWriteQueue_StopReportsLostRecords(t *testing.T) {
	st := newMemStore()
	st.failing.Store(true)
	q := NewWriteQueue(st, WriteQueueOptions{FirstRetryDelay: time.Millisecond, RetryInterval: time.Hour})

	q.EnqueueFailed(queuedUser(1))
	require.Eventually(t, func() bool { return st.bulkCalls.Load() >= 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.ErrorIs(t, q.Stop(ctx), ErrQueueStopped)
	require.False(t, q.Draining())

	// Stopped queues keep buffering but no longer drain.
	q.EnqueueFailed(queuedUser(2))
	require.False(t, q.Draining())
	require.Equal(t, 2, q.Len())
}

func TestWriteQueue_StopFlushesRecoveredStore(t *testing.T) {
	st := newMemStore()
	st.failing.Store(true)
	log := &storedLog{}
	q := NewWriteQueue(st, WriteQueueOptions{
		FirstRetryDelay: time.Millisecond,
		RetryInterval:   time.Hour,
		OnStored:        log.add,
	})

	q.EnqueueFailed(queuedUser(1))
	q.EnqueueFailed(queuedUser(2))
	require.Eventually(t, func() bool { return st.bulkCalls.Load() >= 1 }, time.Second, time.Millisecond)
	require.Equal(t, 0, st.count())

	// The outage ends while the drainer sleeps out its hour.
	st.failing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
	require.Equal(t, 0, q.Len())
	require.Equal(t, 2, st.count())
	require.ElementsMatch(t, []uint64{1, 2}, log.get())
}
