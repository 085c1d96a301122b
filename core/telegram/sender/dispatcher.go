// Package sender runs outbound Telegram calls on a small worker pool with
// retries on transient failures.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/officebot/core/logger"
	"github.com/m3rciful/officebot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when a job is submitted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

// Job is one outbound call.
type Job struct {
	// Action names the call in logs, e.g. "send" or "edit".
	Action string
	// ChatID is the recipient. It differs from the chat of the update being
	// handled when a notice is fanned out.
	ChatID int64
	// Idempotent jobs are retried on any transient failure. Others are
	// retried only when the call surely did not reach Telegram, so a timed
	// out send is never delivered twice.
	Idempotent bool
	Run        func() error
}

type queued struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Stats counts finished jobs.
type Stats struct {
	Sent    uint64
	Failed  uint64
	Retried uint64
}

// Dispatcher executes outbound calls asynchronously with retries.
type Dispatcher struct {
	opts   Options
	jobs   chan queued
	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup

	sent, failed, retried atomic.Uint64
}

// NewDispatcher starts a dispatcher, filling zero options with defaults.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		opts: opts,
		jobs: make(chan queued, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules j without waiting for it.
func (d *Dispatcher) Enqueue(ctx context.Context, j Job) error {
	return d.submit(queued{ctx: ctx, job: j})
}

// Do schedules j and waits for its final result. When ctx ends first, Do
// returns ctx.Err() and the job keeps running in the background.
func (d *Dispatcher) Do(ctx context.Context, j Job) error {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan error, 1)
	if err := d.submit(queued{ctx: ctx, job: j, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) submit(q queued) error {
	if q.job.Run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if q.ctx == nil {
		q.ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- q:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stats returns the counters of finished jobs.
func (d *Dispatcher) Stats() Stats {
	return Stats{Sent: d.sent.Load(), Failed: d.failed.Load(), Retried: d.retried.Load()}
}

// Close stops accepting jobs and waits for the queued ones.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for q := range d.jobs {
		err := d.run(q.ctx, q.job)
		if q.done != nil {
			q.done <- err
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, j Job) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	retryable := netutil.NotSent
	if j.Idempotent {
		retryable = netutil.ShouldRetry
	}
	attempts := d.opts.MaxRetries + 1
	var err error
	attempt := 1
	for ; attempt <= attempts; attempt++ {
		if err = deadlineCtx.Err(); err != nil {
			break
		}
		if err = j.Run(); err == nil {
			break
		}
		if !retryable(err) || attempt == attempts {
			break
		}

		delay := d.opts.RetryBackoff * time.Duration(attempt)
		if wait := netutil.RetryAfter(err); wait > delay {
			delay = wait
		}
		d.retried.Add(1)
		logger.Debug(ctx, logger.CompSender, "send.retry",
			append(jobAttrs(j), slog.Int("attempt", attempt), slog.Duration("delay", delay))...,
		)
		timer := time.NewTimer(delay)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			err = deadlineCtx.Err()
		case <-timer.C:
			continue
		}
		break
	}
	if attempt > attempts {
		attempt = attempts
	}

	attrs := append(jobAttrs(j),
		slog.Int("attempts", attempt),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	if err != nil {
		d.failed.Add(1)
		logger.Warn(ctx, logger.CompSender, "send.fail", append(attrs,
			slog.String("error_kind", netutil.Kind(err)),
			slog.String("err", logger.SanitizeLimit(netutil.Redact(err.Error()), 256)),
		)...)
		return err
	}
	d.sent.Add(1)
	logger.Debug(ctx, logger.CompSender, "send.ok", attrs...)
	return nil
}

func jobAttrs(j Job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.Action)}
	if j.ChatID != 0 {
		attrs = append(attrs, slog.Int64("recipient", j.ChatID))
	}
	return attrs
}
