package idx

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Snowflake bit layout, high to low: 41+ bits of milliseconds since Epoch,
// 10 bits of worker id, 12 bits of sequence.
const (
	// Epoch is 2023-11-14T22:13:20Z in unix milliseconds. Changing it breaks
	// ordering against every id already handed out.
	Epoch int64 = 1700000000000

	WorkerIDBits = 10
	SequenceBits = 12

	MaxWorkerID = (1 << WorkerIDBits) - 1
	MaxSequence = (1 << SequenceBits) - 1

	workerShift    = SequenceBits
	timestampShift = WorkerIDBits + SequenceBits
)

var (
	// ErrClockRegression is returned when the wall clock reads earlier than the
	// last timestamp used. Generation is aborted rather than risk a duplicate.
	ErrClockRegression = errors.New("idx: clock moved backwards")

	// ErrInvalidWorkerID reports a worker id outside 0..MaxWorkerID.
	ErrInvalidWorkerID = errors.New("idx: invalid worker id")

	// ErrBeforeEpoch reports a clock reading earlier than Epoch.
	ErrBeforeEpoch = errors.New("idx: timestamp before epoch")
)

// Clock reports the current time in milliseconds since the unix epoch.
type Clock interface {
	NowMs() int64
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() int64

func (f ClockFunc) NowMs() int64 { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(func() int64 { return time.Now().UnixMilli() })

// Snowflake allocates unique, time-ordered 64-bit ids. One instance should be
// shared by the whole process; two instances with the same worker id will
// collide.
type Snowflake struct {
	mu       sync.Mutex
	clock    Clock
	workerID uint64
	lastMs   int64
	sequence uint64
}

// SnowflakeOption configures a Snowflake.
type SnowflakeOption func(*Snowflake)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) SnowflakeOption {
	return func(s *Snowflake) { s.clock = c }
}

// NewSnowflake returns a generator for the given worker id (0..1023).
func NewSnowflake(workerID uint16, opts ...SnowflakeOption) (*Snowflake, error) {
	if workerID > MaxWorkerID {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidWorkerID, workerID, MaxWorkerID)
	}

	s := &Snowflake{
		clock:    SystemClock,
		workerID: uint64(workerID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// WorkerID returns the configured worker id.
func (s *Snowflake) WorkerID() uint16 { return uint16(s.workerID) } // #nosec G115 - bounded by MaxWorkerID

// Generate returns the next id. It spins when more than MaxSequence+1 ids are
// requested within a single millisecond; that is the intended backpressure.
func (s *Snowflake) Generate() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.NowMs()
	if now < Epoch {
		return 0, fmt.Errorf("%w: %d", ErrBeforeEpoch, now)
	}

	switch {
	case now < s.lastMs:
		return 0, fmt.Errorf("%w: now=%d last=%d", ErrClockRegression, now, s.lastMs)
	case now == s.lastMs:
		s.sequence = (s.sequence + 1) & MaxSequence
		if s.sequence == 0 {
			now = s.waitNextMillis()
		}
	default:
		s.sequence = 0
	}

	s.lastMs = now

	return uint64(now-Epoch)<<timestampShift | s.workerID<<workerShift | s.sequence, nil // #nosec G115 - now >= Epoch
}

// waitNextMillis blocks until the clock moves past lastMs. Caller holds mu.
func (s *Snowflake) waitNextMillis() int64 {
	now := s.clock.NowMs()
	for now <= s.lastMs {
		now = s.clock.NowMs()
	}
	return now
}

// Parts is a decoded snowflake id.
type Parts struct {
	Timestamp time.Time
	WorkerID  uint16
	Sequence  uint16
}

// Decompose splits an id into its timestamp, worker and sequence fields.
func Decompose(id uint64) Parts {
	ms := int64(id>>timestampShift) + Epoch // #nosec G115 - 42 bits fit in int64
	return Parts{
		Timestamp: time.UnixMilli(ms).UTC(),
		WorkerID:  uint16((id >> workerShift) & MaxWorkerID), // #nosec G115
		Sequence:  uint16(id & MaxSequence),                  // #nosec G115
	}
}
