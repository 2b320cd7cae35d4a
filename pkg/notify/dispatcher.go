package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server/store"
)

// Outcome is the terminal state of one access event.
type Outcome int

const (
	// OutcomeLogFailed means the access log could not be written.
	OutcomeLogFailed Outcome = iota
	// OutcomeSkipped means the log was written and no notification was due.
	OutcomeSkipped
	// OutcomeSent means the log was written and the owner was notified.
	OutcomeSent
	// OutcomeFailed means the log was written but delivery failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "notify-skipped"
	case OutcomeSent:
		return "notify-sent"
	case OutcomeFailed:
		return "notify-failed"
	default:
		return "log-failed"
	}
}

// Options tune a Dispatcher.
type Options struct {
	Workers         int
	QueueSize       int
	MaxRetries      int
	InitialInterval time.Duration
	Logger          *slog.Logger
}

// Stats counts processed events by outcome.
type Stats struct {
	Logged    int64 `json:"logged"`
	LogFailed int64 `json:"log_failed"`
	Skipped   int64 `json:"skipped"`
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
	Overflow  int64 `json:"overflow"`
}

// Dispatcher runs access events off the request path. Each event is one
// unit of work: write the access log, then notify the owner if someone
// else read the credential.
type Dispatcher struct {
	logs   store.AccessLogStore
	sink   Sink
	logger *slog.Logger

	maxRetries      uint64
	initialInterval time.Duration

	queue    chan Event
	mu       sync.RWMutex
	closed   bool
	workers  sync.WaitGroup
	overflow sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	logged, logFailed, skipped, sent, failed, overflowed atomic.Int64
}

// NewDispatcher starts the worker pool.
func NewDispatcher(logs store.AccessLogStore, sink Sink, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		logs:            logs,
		sink:            sink,
		logger:          opts.Logger.With("component", "notify"),
		maxRetries:      uint64(opts.MaxRetries),
		initialInterval: opts.InitialInterval,
		queue:           make(chan Event, opts.QueueSize),
		ctx:             ctx,
		cancel:          cancel,
	}

	for i := 0; i < opts.Workers; i++ {
		d.workers.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.workers.Done()
	for e := range d.queue {
		d.Process(d.ctx, e)
	}
}

// Enqueue hands an event to the pool without blocking. When the queue is
// full the event runs on its own goroutine instead of being dropped.
func (d *Dispatcher) Enqueue(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		// Close has already returned, so nothing waits on this one. The
		// worker context is cancelled by now.
		d.overflowed.Add(1)
		d.logger.Warn("access event after shutdown, processing out of band",
			"credential_id", e.Credential.ID, "user_id", e.Accessor.ID)
		go d.Process(context.Background(), e)
		return
	}

	select {
	case d.queue <- e:
	default:
		d.overflowed.Add(1)
		d.logger.Warn("access event queue full, processing out of band",
			"credential_id", e.Credential.ID, "user_id", e.Accessor.ID)
		d.overflow.Add(1)
		go func() {
			defer d.overflow.Done()
			d.Process(d.ctx, e)
		}()
	}
}

// Close stops intake and waits for queued and in-flight events. If ctx
// ends first, outstanding retries are abandoned and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		d.overflow.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initialInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, d.maxRetries), ctx)
}

// Process runs one event to completion and reports how it ended.
func (d *Dispatcher) Process(ctx context.Context, e Event) Outcome {
	log := d.logger.With("credential_id", e.Credential.ID, "user_id", e.Accessor.ID)

	entry, err := backoff.RetryNotifyWithData(func() (*model.AccessLog, error) {
		return d.logs.CreateAccessLog(ctx, e.Accessor.ID, e.Credential.ID)
	}, d.newBackOff(ctx), func(err error, wait time.Duration) {
		log.Warn("access log write failed, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		d.logFailed.Add(1)
		log.Error("access log write failed", "error", err)
		return OutcomeLogFailed
	}
	d.logged.Add(1)

	role := "user"
	if e.Accessor.IsStaff {
		role = "admin"
	}
	log.Info("credential accessed",
		"access_log_id", entry.ID,
		"accessor", e.Accessor.Username,
		"role", role,
		"accessed_at", entry.AccessedAt,
	)

	if e.Credential.IsOwnedBy(e.Accessor.ID) {
		d.skipped.Add(1)
		return OutcomeSkipped
	}

	msg := Compose(e, entry)
	if msg.To == "" {
		d.failed.Add(1)
		log.Warn("credential owner has no e-mail address, notification not sent",
			"owner_id", e.Credential.CreatedByID)
		return OutcomeFailed
	}

	err = backoff.RetryNotify(func() error {
		return d.sink.Send(ctx, msg)
	}, d.newBackOff(ctx), func(err error, wait time.Duration) {
		log.Warn("owner notification failed, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		d.failed.Add(1)
		log.Error("owner notification failed", "error", err, "owner_id", e.Credential.CreatedByID)
		return OutcomeFailed
	}

	d.sent.Add(1)
	return OutcomeSent
}

// Stats returns a snapshot of outcome counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Logged:    d.logged.Load(),
		LogFailed: d.logFailed.Load(),
		Skipped:   d.skipped.Load(),
		Sent:      d.sent.Load(),
		Failed:    d.failed.Load(),
		Overflow:  d.overflowed.Load(),
	}
}
