package events

import (
	"context"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// amqpChannel is the subset of *amqp.Channel the queue uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPConfig names the topology the queue declares.
type AMQPConfig struct {
	Exchange           string
	Queue              string
	DeadLetterExchange string
	Workers            int
}

func (c AMQPConfig) withDefaults() AMQPConfig {
	if c.Exchange == "" {
		c.Exchange = "prospect.events"
	}
	if c.Queue == "" {
		c.Queue = "prospect.events.dispatch"
	}
	if c.DeadLetterExchange == "" {
		c.DeadLetterExchange = c.Exchange + ".dlx"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

// DeadLetterQueue is the queue rejected events land in.
func (c AMQPConfig) DeadLetterQueue() string { return c.Queue + ".dlq" }

// AMQPQueue publishes events to a RabbitMQ topic exchange and consumes them
// from a durable queue with a dead-letter exchange.
type AMQPQueue struct {
	cfg  AMQPConfig
	ch   amqpChannel
	conn interface{ Close() error }
}

// DialAMQP connects to url, retrying transient failures, and declares the
// topology.
func DialAMQP(ctx context.Context, url string, cfg AMQPConfig) (*AMQPQueue, error) {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("amqp")
	retry.ShouldRetry = func(err error) bool {
		return resilience.IsTransient(err) || strings.Contains(err.Error(), "dial")
	}

	conn, err := resilience.DoVal(ctx, retry, func(context.Context) (*amqp.Connection, error) {
		return amqp.Dial(url)
	})
	if err != nil {
		return nil, eris.Wrap(err, "events: dial amqp")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, eris.Wrap(err, "events: open amqp channel")
	}

	q, err := newAMQPQueue(ch, conn, cfg)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return q, nil
}

func newAMQPQueue(ch amqpChannel, conn interface{ Close() error }, cfg AMQPConfig) (*AMQPQueue, error) {
	q := &AMQPQueue{cfg: cfg.withDefaults(), ch: ch, conn: conn}
	if err := q.setupTopology(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *AMQPQueue) setupTopology() error {
	c := q.cfg

	if err := q.ch.ExchangeDeclare(c.DeadLetterExchange, "topic", true, false, false, false, nil); err != nil {
		return eris.Wrapf(err, "events: declare exchange %s", c.DeadLetterExchange)
	}
	if _, err := q.ch.QueueDeclare(c.DeadLetterQueue(), true, false, false, false, nil); err != nil {
		return eris.Wrapf(err, "events: declare queue %s", c.DeadLetterQueue())
	}
	if err := q.ch.QueueBind(c.DeadLetterQueue(), "#", c.DeadLetterExchange, false, nil); err != nil {
		return eris.Wrapf(err, "events: bind %s", c.DeadLetterQueue())
	}

	if err := q.ch.ExchangeDeclare(c.Exchange, "topic", true, false, false, false, nil); err != nil {
		return eris.Wrapf(err, "events: declare exchange %s", c.Exchange)
	}
	args := amqp.Table{"x-dead-letter-exchange": c.DeadLetterExchange}
	if _, err := q.ch.QueueDeclare(c.Queue, true, false, false, false, args); err != nil {
		return eris.Wrapf(err, "events: declare queue %s", c.Queue)
	}
	if err := q.ch.QueueBind(c.Queue, "#", c.Exchange, false, nil); err != nil {
		return eris.Wrapf(err, "events: bind %s", c.Queue)
	}
	return nil
}

// Publish sends e as a persistent JSON message routed by its kind.
func (q *AMQPQueue) Publish(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := encode(e)
	if err != nil {
		return err
	}

	err = q.ch.PublishWithContext(ctx, q.cfg.Exchange, string(e.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    e.ID,
		Timestamp:    e.OccurredAt,
		Type:         string(e.Kind),
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return resilience.NewTransientError(eris.Wrapf(err, "events: publish %s", e.Kind), 0)
	}
	metrics.RecordEventPublished(string(e.Kind))
	return nil
}

// Consume registers a manual-ack consumer and runs cfg.Workers goroutines
// over its deliveries until ctx is done or the channel closes.
func (q *AMQPQueue) Consume(ctx context.Context, fn ConsumeFunc) error {
	if err := q.ch.Qos(q.cfg.Workers, 0, false); err != nil {
		return eris.Wrap(err, "events: set qos")
	}
	msgs, err := q.ch.Consume(q.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return eris.Wrapf(err, "events: consume %s", q.cfg.Queue)
	}

	zap.L().Info("events: consuming",
		zap.String("queue", q.cfg.Queue),
		zap.Int("workers", q.cfg.Workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case d, ok := <-msgs:
					if !ok {
						return nil
					}
					q.deliver(gctx, d, fn)
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (q *AMQPQueue) deliver(ctx context.Context, d amqp.Delivery, fn ConsumeFunc) {
	log := zap.L().With(zap.String("routing_key", d.RoutingKey), zap.Uint64("delivery_tag", d.DeliveryTag))

	e, err := decode(d.Body)
	if err != nil {
		log.Error("events: malformed message, dead-lettering", zap.Error(err))
		if nerr := d.Nack(false, false); nerr != nil {
			log.Warn("events: nack failed", zap.Error(nerr))
		}
		return
	}

	var settleErr error
	switch fn(ctx, e, d.Redelivered) {
	case resilience.Ack:
		settleErr = d.Ack(false)
	case resilience.Requeue:
		settleErr = d.Nack(false, true)
	default:
		settleErr = d.Nack(false, false)
	}
	if settleErr != nil {
		log.Warn("events: settle delivery", zap.String("event_id", e.ID), zap.Error(settleErr))
	}
}

// Close closes the channel and connection.
func (q *AMQPQueue) Close() error {
	chErr := q.ch.Close()
	if q.conn != nil {
		if err := q.conn.Close(); err != nil {
			return eris.Wrap(err, "events: close amqp connection")
		}
	}
	return eris.Wrap(chErr, "events: close amqp channel")
}
