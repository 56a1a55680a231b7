// Package audit records gateway and admin activity without slowing down the
// requests that produce it.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

const (
	DefaultQueueSize    = 1024
	DefaultWriteTimeout = 5 * time.Second
)

// Sink persists audit entries. *config.Store satisfies it.
type Sink interface {
	InsertAuditLog(ctx context.Context, e *model.AuditLog) error
}

// Stats are the recorder's lifetime counters.
type Stats struct {
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
	Queued  int   `json:"queued"`
}

// Recorder queues audit entries and writes them from a single worker.
// Delivery is at-most-once: entries are dropped when the queue is full, when
// a write fails, or when they arrive after Close.
type Recorder struct {
	sink         Sink
	queue        chan *model.AuditLog
	writeTimeout time.Duration
	logger       *slog.Logger

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Options configures a Recorder.
type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// NewRecorder starts a recorder writing to sink.
func NewRecorder(sink Sink, opts Options) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Recorder{
		sink:         sink,
		queue:        make(chan *model.AuditLog, opts.QueueSize),
		writeTimeout: opts.WriteTimeout,
		logger:       opts.Logger,
		done:         make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues e. It never blocks.
func (r *Recorder) Record(e *model.AuditLog) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.queue <- e:
	default:
		if r.dropped.Add(1)%100 == 1 {
			r.logger.Warn("audit queue full, dropping entries", "dropped_total", r.dropped.Load())
		}
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		r.write(e)
	}
}

func (r *Recorder) write(e *model.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.sink.InsertAuditLog(ctx, e); err != nil {
		r.failed.Add(1)
		r.logger.Error("audit write failed", "action", e.Action, "error", err)
		return
	}
	r.written.Add(1)
}

// Close stops accepting entries and waits, until ctx is done, for the queued
// ones to be written.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
		Queued:  len(r.queue),
	}
}
