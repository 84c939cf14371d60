// Package dispatch hands click messages from the redirect path to the click
// accountant without making the redirect wait for them.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/metrics"
)

// Dispatcher accepts a click for accounting. Dispatch never blocks on the
// accounting itself.
type Dispatcher interface {
	Dispatch(click *domain.ClickMessage)
}

type Recorder interface {
	Record(ctx context.Context, linkID string, attrs domain.ClickAttributes)
}

type PoolConfig struct {
	Workers       int
	QueueSize     int
	RecordTimeout time.Duration
}

// Pool records clicks on a fixed set of workers fed by a bounded queue.
// When the queue is full the click is recorded on its own goroutine.
type Pool struct {
	recorder Recorder
	jobs     chan *domain.ClickMessage
	timeout  time.Duration
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	closed   bool
	workers  sync.WaitGroup
	overflow sync.WaitGroup
}

func NewPool(recorder Recorder, cfg PoolConfig, m *metrics.Metrics) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = 5 * time.Second
	}

	p := &Pool{
		recorder: recorder,
		jobs:     make(chan *domain.ClickMessage, cfg.QueueSize),
		timeout:  cfg.RecordTimeout,
		metrics:  m,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.workers.Add(1)
		go p.work()
	}

	return p
}

func (p *Pool) Dispatch(click *domain.ClickMessage) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.metrics.ClickDispatched("dropped")
		logger.Get().Warn("Click dropped after shutdown", slog.String("link_id", click.LinkID))
		return
	}

	select {
	case p.jobs <- click:
		p.metrics.ClickDispatched("queued")
	default:
		p.metrics.ClickDispatched("overflow")
		p.overflow.Add(1)
		go func() {
			defer p.overflow.Done()
			p.record(click)
		}()
	}
}

func (p *Pool) work() {
	defer p.workers.Done()
	for click := range p.jobs {
		p.record(click)
	}
}

func (p *Pool) record(click *domain.ClickMessage) {
	ctx, cancel := context.WithTimeout(messageContext(click), p.timeout)
	defer cancel()

	p.recorder.Record(ctx, click.LinkID, click.Attributes)
}

// Close stops accepting clicks and waits for queued and in-flight ones until
// ctx is done.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		p.overflow.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// messageContext carries the originating request ID into the recording so
// its log lines can be joined with the redirect's.
func messageContext(click *domain.ClickMessage) context.Context {
	if click.RequestID == "" {
		return logger.WithLogger(context.Background(), logger.Get())
	}
	return logger.WithRequestID(context.Background(), click.RequestID)
}
