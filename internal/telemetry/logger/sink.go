package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Sink batching parameters.
const (
	maxBatch      = 256
	maxQueue      = 64 * 1024
	flushInterval = 200 * time.Millisecond
)

// Sink is an asynchronous, hourly-rotated file writer. It implements
// io.Writer: each Write enqueues one formatted record and returns
// immediately. A dedicated goroutine drains the queue in batches.
// When the queue is full the oldest record is dropped.
type Sink struct {
	dir    string
	prefix string

	mu    sync.Mutex
	queue [][]byte
	cond  *sync.Cond

	closed atomic.Bool
	done   chan struct{}

	file    *os.File
	curHour time.Time
	now     func() time.Time
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithSinkClock overrides the wall clock, for tests.
func WithSinkClock(now func() time.Time) SinkOption {
	return func(s *Sink) {
		s.now = now
	}
}

// NewSink creates the log directory and starts the writer goroutine.
func NewSink(dir, prefix string, opts ...SinkOption) (*Sink, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}

	s := &Sink{
		dir:    dir,
		prefix: prefix,
		done:   make(chan struct{}),
		now:    time.Now,
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s, nil
}

// Write enqueues one record. It never blocks beyond the enqueue and
// never returns an error to the caller.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return len(p), nil
	}

	rec := make([]byte, len(p))
	copy(rec, p)

	s.mu.Lock()
	if len(s.queue) >= maxQueue {
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, rec)
	s.mu.Unlock()
	s.cond.Signal()

	return len(p), nil
}

// Close stops the writer after draining all pending records.
func (s *Sink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cond.Signal()
	<-s.done

	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func (s *Sink) run() {
	defer close(s.done)

	batch := make([][]byte, 0, maxBatch)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed.Load() {
			// Wake periodically so a quiet queue still flushes and
			// Close is noticed promptly.
			waitWithTimeout(s.cond, flushInterval)
		}
		n := len(s.queue)
		if n > maxBatch {
			n = maxBatch
		}
		batch = append(batch[:0], s.queue[:n]...)
		s.queue = s.queue[n:]
		closing := s.closed.Load()
		remaining := len(s.queue)
		s.mu.Unlock()

		if len(batch) > 0 {
			s.writeBatch(batch)
		}
		if closing && remaining == 0 && len(batch) == 0 {
			return
		}
	}
}

// waitWithTimeout waits on c or the timeout, whichever first. The
// caller holds the condition's lock.
func waitWithTimeout(c *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, c.Signal)
	c.Wait()
	timer.Stop()
}

// writeBatch appends the batch to the current hour's file, rotating
// first when the hour has changed. Write failures drop the batch.
func (s *Sink) writeBatch(batch [][]byte) {
	now := s.now()
	s.rotate(now)
	if s.file == nil {
		return
	}
	for _, rec := range batch {
		if _, err := s.file.Write(rec); err != nil {
			return
		}
	}
}

// rotate opens the file for the hour containing now if it is not
// already open.
func (s *Sink) rotate(now time.Time) {
	hour := now.Truncate(time.Hour)
	if s.file != nil && hour.Equal(s.curHour) {
		return
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}

	name := fmt.Sprintf("%s-%s.log", s.prefix, hour.Format("2006-01-02-15"))
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return
	}
	s.file = f
	s.curHour = hour
}
