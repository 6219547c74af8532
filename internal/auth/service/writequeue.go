package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/metrics"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
	"github.com/aussiebroadwan/messenger/pkg/slogx"
)

const (
	DefaultFirstRetryDelay = 5 * time.Second
	DefaultRetryInterval   = 30 * time.Second
)

type WriteQueueOptions struct {
	// FirstRetryDelay is the wait before the single immediate retry.
	FirstRetryDelay time.Duration
	// RetryInterval is the wait between failed bulk inserts.
	RetryInterval time.Duration

	// OnStored runs for every record the drainer or the final flush in Stop
	// saves.
	// Records saved directly by SaveWithRetry are not reported.
	OnStored func(ctx context.Context, u domain.User)

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// WriteQueue keeps account records whose insert failed and retries them in
// bulk until the database takes them. At most one drainer runs at a time; it
// exits once the buffer is empty and is restarted by the next failure.
type WriteQueue struct {
	store           store.Store
	logger          *slog.Logger
	metrics         *metrics.Metrics
	firstRetryDelay time.Duration
	retryInterval   time.Duration
	onStored        func(ctx context.Context, u domain.User)

	mu       sync.Mutex
	buffer   []domain.User
	draining bool
	stopped  bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWriteQueue(st store.Store, opts WriteQueueOptions) *WriteQueue {
	q := &WriteQueue{
		store:           st,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		firstRetryDelay: opts.FirstRetryDelay,
		retryInterval:   opts.RetryInterval,
		onStored:        opts.OnStored,
		stopCh:          make(chan struct{}),
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	if q.firstRetryDelay <= 0 {
		q.firstRetryDelay = DefaultFirstRetryDelay
	}
	if q.retryInterval <= 0 {
		q.retryInterval = DefaultRetryInterval
	}
	return q
}

// SaveWithRetry inserts u, retries once after FirstRetryDelay and then hands
// the record to the background drainer. stored reports whether u is in the
// database on return; a queued record is announced through OnStored once the
// drainer saves it. Only a unique-constraint conflict is returned as an error,
// and the record is dropped in that case since retrying cannot help.
func (q *WriteQueue) SaveWithRetry(ctx context.Context, u domain.User) (stored bool, err error) {
	err = q.insertOne(ctx, u)
	if err == nil || isConflict(err) {
		return err == nil, err
	}
	q.logger.Warn("account insert failed, retrying", "user_id", u.ID, "delay", q.firstRetryDelay, "error", err)

	if !q.sleep(q.firstRetryDelay) {
		q.EnqueueFailed(u)
		return false, nil
	}

	err = q.insertOne(ctx, u)
	if err == nil || isConflict(err) {
		return err == nil, err
	}
	q.logger.Warn("account insert retry failed, queueing", "user_id", u.ID, "error", err)
	q.EnqueueFailed(u)
	return false, nil
}

// EnqueueFailed buffers u and starts the drainer unless one is running.
func (q *WriteQueue) EnqueueFailed(u domain.User) {
	q.mu.Lock()
	q.buffer = append(q.buffer, u)
	depth := len(q.buffer)
	start := !q.draining && !q.stopped
	if start {
		q.draining = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	q.metrics.SetWriteQueueDepth(depth)
	if start {
		slogx.Go(q.logger, "write-queue-drain", q.drain)
	}
}

// Len returns the number of buffered records.
func (q *WriteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}

// Draining reports whether a drainer goroutine is active.
func (q *WriteQueue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// Stop ends retries, waits for the drainer and then makes one last attempt
// to save whatever is still buffered, bounded by ctx. Records that still
// cannot be saved are logged as lost and ErrQueueStopped is returned.
func (q *WriteQueue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		close(q.stopCh)
	})

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	q.mu.Lock()
	batch := q.buffer
	q.buffer = nil
	q.mu.Unlock()

	if len(batch) > 0 {
		stored, remaining, err := q.flush(ctx, batch)
		q.announce(ctx, stored)
		if err != nil {
			q.logger.Warn("final write queue flush failed", "count", len(remaining), "error", err)
		}

		q.mu.Lock()
		q.buffer = append(remaining, q.buffer...)
		q.mu.Unlock()
	}

	q.mu.Lock()
	lost := make([]uint64, 0, len(q.buffer))
	for _, u := range q.buffer {
		lost = append(lost, u.ID)
	}
	depth := len(q.buffer)
	q.mu.Unlock()
	q.metrics.SetWriteQueueDepth(depth)

	if len(lost) > 0 {
		q.logger.Error("write queue stopped with unsaved accounts", "count", len(lost), "user_ids", lost)
		return ErrQueueStopped
	}
	return nil
}

func (q *WriteQueue) drain() {
	defer q.wg.Done()
	exited := false
	defer func() {
		// Reached only through a panic: let the next failure restart draining.
		if !exited {
			q.mu.Lock()
			q.draining = false
			q.mu.Unlock()
		}
	}()

	ctx := context.Background()
	for {
		q.mu.Lock()
		if len(q.buffer) == 0 || q.stopped {
			q.draining = false
			q.mu.Unlock()
			exited = true
			return
		}
		batch := slices.Clone(q.buffer)
		q.mu.Unlock()

		stored, remaining, err := q.flush(ctx, batch)

		q.mu.Lock()
		q.buffer = append(remaining, q.buffer[len(batch):]...)
		depth := len(q.buffer)
		q.mu.Unlock()
		q.metrics.SetWriteQueueDepth(depth)
		q.announce(ctx, stored)

		if err == nil {
			q.metrics.WriteQueueFlush("ok")
			q.logger.Info("write queue flushed", "count", len(stored))
			continue
		}

		q.metrics.WriteQueueFlush("error")
		q.logger.Warn("write queue flush failed", "count", len(batch), "retry_in", q.retryInterval, "error", err)
		if !q.sleep(q.retryInterval) {
			q.mu.Lock()
			q.draining = false
			q.mu.Unlock()
			exited = true
			return
		}
	}
}

// flush bulk-inserts batch and splits it into the records now stored and the
// ones that still need saving. A unique conflict poisons the whole
// transaction, so the batch is then replayed one record at a time and
// conflicting records are dropped.
func (q *WriteQueue) flush(ctx context.Context, batch []domain.User) (stored, remaining []domain.User, err error) {
	err = store.CreateUsers(ctx, q.store, batch)
	if err == nil {
		return batch, nil, nil
	}
	if !isConflict(err) {
		return nil, batch, err
	}

	var lastErr error
	for _, u := range batch {
		err := q.insertOne(ctx, u)
		switch {
		case err == nil:
			stored = append(stored, u)
		case isConflict(err):
			q.logger.Error("queued account conflicts with stored data, dropping", "user_id", u.ID, "error", err)
		default:
			remaining = append(remaining, u)
			lastErr = err
		}
	}
	return stored, remaining, lastErr
}

func (q *WriteQueue) announce(ctx context.Context, stored []domain.User) {
	if q.onStored == nil {
		return
	}
	for _, u := range stored {
		slogx.Guard(q.logger, "write-queue-stored", func() { q.onStored(ctx, u) })
	}
}

// insertOne stores u. A conflict on a record that is already stored under the
// same id counts as success: an earlier attempt committed but reported failure.
func (q *WriteQueue) insertOne(ctx context.Context, u domain.User) error {
	err := q.store.Users().CreateUser(ctx, u)
	if err == nil || !isConflict(err) {
		return err
	}
	if stored, getErr := q.store.Users().GetUserByID(ctx, u.ID); getErr == nil && sameRecord(stored, u) {
		return nil
	}
	return err
}

func (q *WriteQueue) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-q.stopCh:
		return false
	}
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrAlreadyExists)
}

func sameRecord(a, b domain.User) bool {
	return a.ID == b.ID && a.Username == b.Username && slices.Equal(a.EmailHash, b.EmailHash)
}
