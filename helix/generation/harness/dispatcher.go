package harness

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

const defaultJobTimeout = 10 * time.Second

type job struct {
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher runs fire-and-forget side effects on a bounded worker pool.
// Each worker owns its queue and jobs sharing a key always land on the same
// worker, so one session's events and log writes complete in submit order.
// Submit never blocks: when the queue is full the job is dropped and logged.
// With zero workers jobs run inline on the caller's goroutine.
type Dispatcher struct {
	queues  []chan job
	timeout time.Duration
	wg      conc.WaitGroup
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers goroutines, each draining a queue of
// queueSize jobs.
func NewDispatcher(workers, queueSize int, logger zerolog.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		timeout: defaultJobTimeout,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
	if workers <= 0 {
		return d
	}

	d.queues = make([]chan job, workers)
	for i := range d.queues {
		q := make(chan job, queueSize)
		d.queues[i] = q
		d.wg.Go(func() { d.work(q) })
	}
	return d
}

// Submit queues fn under name on the worker owning key. It reports whether
// the job was accepted.
func (d *Dispatcher) Submit(key, name string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn().Str("job", name).Msg("dispatcher closed, dropping job")
		return false
	}

	j := job{name: name, fn: fn}
	if len(d.queues) == 0 {
		d.run(j)
		return true
	}

	select {
	case d.queues[d.shard(key)] <- j:
		return true
	default:
		d.logger.Warn().Str("job", name).Str("key", key).Msg("dispatch queue full, dropping job")
		return false
	}
}

func (d *Dispatcher) shard(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.queues)))
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work(q <-chan job) {
	for j := range q {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	var pc panics.Catcher
	pc.Try(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := j.fn(ctx); err != nil {
			d.logger.Warn().Err(err).Str("job", j.name).Msg("background job failed")
		}
	})
	if r := pc.Recovered(); r != nil {
		d.logger.Error().Err(r.AsError()).Str("job", j.name).Msg("background job panicked")
	}
}

// AsyncPublisher hands every event to the dispatcher, keyed by session, and
// returns at once.
type AsyncPublisher struct {
	next       ports.Publisher
	dispatcher *Dispatcher
}

func NewAsyncPublisher(next ports.Publisher, d *Dispatcher) *AsyncPublisher {
	return &AsyncPublisher{next: next, dispatcher: d}
}

func (p *AsyncPublisher) Publish(_ context.Context, ev ports.Event) error {
	p.dispatcher.Submit(ev.SessionID, "publish:"+ev.Name, func(ctx context.Context) error {
		return p.next.Publish(ctx, ev)
	})
	return nil
}

// AsyncLog writes to the durable log off the turn path.
type AsyncLog struct {
	next       ports.DurableLog
	dispatcher *Dispatcher
}

func NewAsyncLog(next ports.DurableLog, d *Dispatcher) *AsyncLog {
	return &AsyncLog{next: next, dispatcher: d}
}

func (l *AsyncLog) RecordMessage(_ context.Context, rec ports.MessageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	l.dispatcher.Submit(rec.SessionID, "record_message", func(ctx context.Context) error {
		return l.next.RecordMessage(ctx, rec)
	})
	return nil
}

func (l *AsyncLog) RecordTask(_ context.Context, rec ports.TaskRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	l.dispatcher.Submit(rec.SessionID, "record_task", func(ctx context.Context) error {
		return l.next.RecordTask(ctx, rec)
	})
	return nil
}

var (
	_ ports.Publisher  = (*AsyncPublisher)(nil)
	_ ports.DurableLog = (*AsyncLog)(nil)
)
