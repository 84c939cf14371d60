package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher sends clicks to a durable RabbitMQ queue for cmd/worker to
// record. Publishing happens off the caller's goroutine.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel amqpPublisher
	closer  func() error
	queue   string
	metrics *metrics.Metrics

	mu       sync.Mutex
	inflight sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool
}

func NewAMQPPublisher(url, queue string, m *metrics.Metrics) (*AMQPPublisher, error) {
	conn, ch, err := openQueue(url, queue)
	if err != nil {
		return nil, err
	}

	p := newAMQPPublisher(ch, queue, m)
	p.conn = conn
	p.closer = ch.Close
	return p, nil
}

func newAMQPPublisher(ch amqpPublisher, queue string, m *metrics.Metrics) *AMQPPublisher {
	return &AMQPPublisher{
		channel: ch,
		queue:   queue,
		metrics: m,
	}
}

func (p *AMQPPublisher) Dispatch(click *domain.ClickMessage) {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		p.metrics.ClickDispatched("dropped")
		logger.Get().Warn("Click dropped after shutdown", slog.String("link_id", click.LinkID))
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		ctx, cancel := context.WithTimeout(messageContext(click), publishTimeout)
		defer cancel()

		if err := p.publish(ctx, click); err != nil {
			p.metrics.ClickDispatched("failed")
			logger.FromContext(ctx).Error("Failed to publish click",
				slog.String("link_id", click.LinkID),
				slog.String("error", err.Error()),
			)
			return
		}
		p.metrics.ClickDispatched("published")
	}()
}

func (p *AMQPPublisher) publish(ctx context.Context, click *domain.ClickMessage) error {
	body, err := json.Marshal(click)
	if err != nil {
		return err
	}

	// Channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    click.RequestID,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

var errBrokerClosed = errors.New("broker connection closed")

// Ping reports whether the broker connection is still open.
func (p *AMQPPublisher) Ping(context.Context) error {
	if p.conn != nil && p.conn.IsClosed() {
		return errBrokerClosed
	}
	return nil
}

// Close stops accepting clicks, waits for in-flight publishes, then closes
// the channel and connection.
func (p *AMQPPublisher) Close(ctx context.Context) error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return nil
	}
	p.closed = true
	p.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	var errs []error
	if p.closer != nil {
		errs = append(errs, p.closer())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}

	return errors.Join(append(errs, waitErr)...)
}

// AMQPConsumer records clicks delivered from the queue.
type AMQPConsumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	recorder Recorder
	workers  int
	timeout  time.Duration
}

func NewAMQPConsumer(url, queue string, recorder Recorder, cfg PoolConfig) (*AMQPConsumer, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = 5 * time.Second
	}

	conn, ch, err := openQueue(url, queue)
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(cfg.Workers*2, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	return &AMQPConsumer{
		conn:     conn,
		channel:  ch,
		queue:    queue,
		recorder: recorder,
		workers:  cfg.Workers,
		timeout:  cfg.RecordTimeout,
	}, nil
}

const consumerTag = "shortlink-worker"

// Run consumes until ctx is cancelled or the broker closes the delivery
// stream, then waits for the workers to finish their current message.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", c.queue, err)
	}

	log := logger.FromContext(ctx)
	log.Info("Consuming clicks", slog.String("queue", c.queue), slog.Int("workers", c.workers))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				c.handle(d)
			}
		}()
	}

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		if err := c.channel.Cancel(consumerTag, false); err != nil {
			log.Warn("Failed to cancel consumer", slog.String("error", err.Error()))
		}
		<-stopped
		return nil
	case <-stopped:
		return errors.New("delivery stream closed by broker")
	}
}

func (c *AMQPConsumer) handle(d amqp.Delivery) {
	var click domain.ClickMessage
	if err := json.Unmarshal(d.Body, &click); err != nil || click.LinkID == "" {
		logger.Get().Error("Discarding malformed click message", slog.String("message_id", d.MessageId))
		_ = d.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(messageContext(&click), c.timeout)
	defer cancel()

	c.recorder.Record(ctx, click.LinkID, click.Attributes)
	_ = d.Ack(false)
}

func (c *AMQPConsumer) Close() error {
	return errors.Join(c.channel.Close(), c.conn.Close())
}

func openQueue(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return conn, ch, nil
}
