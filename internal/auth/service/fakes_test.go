package service

import (
	"bytes"
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
)

// memStore is an in-memory store.Store with switchable write failures.
type memStore struct {
	mu    sync.Mutex
	users map[uint64]domain.User

	failing     atomic.Bool // every write fails with ErrTransient
	ghostCommit atomic.Bool // next single insert is stored but reported as failed

	creates   atomic.Int64
	inTx      atomic.Int64
	maxInTx   atomic.Int64
	bulkCalls atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uint64]domain.User)}
}

func (m *memStore) Users() store.Users     { return &memUsers{m: m} }
func (m *memStore) ApplyMigrations() error { return nil }
func (m *memStore) Close() error           { return nil }

func (m *memStore) Ping(ctx context.Context) error {
	if m.failing.Load() {
		return store.ErrTransient
	}
	return nil
}

func (m *memStore) Tx(ctx context.Context) (store.Tx, error) {
	n := m.inTx.Add(1)
	for {
		cur := m.maxInTx.Load()
		if n <= cur || m.maxInTx.CompareAndSwap(cur, n) {
			break
		}
	}
	m.bulkCalls.Add(1)
	return &memTx{m: m}, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := m.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memStore) get(id uint64) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

// conflictLocked checks u against stored users and staged ones.
func (m *memStore) conflictLocked(u domain.User, staged []domain.User) error {
	check := func(o domain.User) error {
		switch {
		case o.ID == u.ID:
			return &store.ConflictError{Field: store.FieldID}
		case bytes.Equal(o.EmailHash, u.EmailHash):
			return &store.ConflictError{Field: store.FieldEmail}
		case o.Username == u.Username:
			return &store.ConflictError{Field: store.FieldUsername}
		}
		return nil
	}
	for _, o := range m.users {
		if err := check(o); err != nil {
			return err
		}
	}
	for _, o := range staged {
		if err := check(o); err != nil {
			return err
		}
	}
	return nil
}

type memUsers struct {
	m  *memStore
	tx *memTx
}

func (r *memUsers) CreateUser(ctx context.Context, u domain.User) error {
	m := r.m
	m.creates.Add(1)
	if m.failing.Load() {
		return store.ErrTransient
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r.tx != nil {
		if err := m.conflictLocked(u, r.tx.staged); err != nil {
			return err
		}
		r.tx.staged = append(r.tx.staged, u)
		return nil
	}

	if err := m.conflictLocked(u, nil); err != nil {
		return err
	}
	m.users[u.ID] = u
	if m.ghostCommit.CompareAndSwap(true, false) {
		return store.ErrTransient
	}
	return nil
}

func (r *memUsers) GetUserByID(ctx context.Context, id uint64) (domain.User, error) {
	if u, ok := r.m.get(id); ok {
		return u, nil
	}
	return domain.User{}, store.ErrNotFound
}

func (r *memUsers) GetUserByEmailHash(ctx context.Context, emailHash []byte) (domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if bytes.Equal(u.EmailHash, emailHash) {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (r *memUsers) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (r *memUsers) DeleteUser(ctx context.Context, id uint64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.m.users, id)
	return nil
}

func (r *memUsers) CheckAvailability(ctx context.Context, emailHash []byte, username string) (bool, bool, error) {
	if r.m.failing.Load() {
		return false, false, store.ErrTransient
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var emailTaken, usernameTaken bool
	for _, u := range r.m.users {
		emailTaken = emailTaken || bytes.Equal(u.EmailHash, emailHash)
		usernameTaken = usernameTaken || u.Username == username
	}
	return emailTaken, usernameTaken, nil
}

type memTx struct {
	m      *memStore
	staged []domain.User
	done   bool
}

func (t *memTx) Users() store.Users     { return &memUsers{m: t.m, tx: t} }
func (t *memTx) ApplyMigrations() error { return nil }
func (t *memTx) Close() error           { return nil }

func (t *memTx) Ping(ctx context.Context) error { return nil }

func (t *memTx) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *memTx) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	defer t.m.inTx.Add(-1)

	if t.m.failing.Load() {
		return store.ErrTransient
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, u := range t.staged {
		t.m.users[u.ID] = u
	}
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.m.inTx.Add(-1)
	return nil
}

// fakeScheduler collects timers so tests decide when they fire.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool { return !t.stopped.Swap(true) }

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

func (s *fakeScheduler) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire runs the callback even when the timer was stopped, which is what a
// timer that already fired concurrently with Stop looks like.
func (s *fakeScheduler) fire(i int) { s.timer(i).f() }

// captureNotifier records every message by address.
type captureNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (n *captureNotifier) Send(ctx context.Context, address, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string][]string)
	}
	n.sent[address] = append(n.sent[address], body)
	return nil
}

func (n *captureNotifier) count(address string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent[address])
}
