package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dejobratic/orderflow/internal/telemetry"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultExchange = "order_events"

	exchangeKind   = "topic"
	timestampField = "timestamp"
	// ISO-8601 in UTC with millisecond precision, e.g. 2024-01-02T03:04:05.678Z.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

var (
	ErrNotConnected      = errors.New("publisher is not connected")
	ErrBrokerConnection  = errors.New("broker connection failed")
	ErrInvalidRoutingKey = errors.New("invalid routing key")
	ErrInvalidPayload    = errors.New("event payload must encode to a JSON object")
)

// Routing keys are dot-separated words; wildcards belong to bindings only.
var routingKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

type Config struct {
	URL            string
	Exchange       string
	ConnectTimeout time.Duration
	ConnectionName string
}

type Option func(*Publisher)

func WithDialer(dial Dialer) Option {
	return func(p *Publisher) {
		p.dial = dial
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = metrics
	}
}

// Publisher announces events on a durable topic exchange over a single
// connection and channel. It is safe for concurrent use; publishes are
// serialized so events from one process reach the broker in call order.
type Publisher struct {
	cfg     Config
	logger  *slog.Logger
	dial    Dialer
	now     func() time.Time
	metrics *Metrics

	mu   sync.RWMutex
	conn Connection
	ch   Channel

	publishMu sync.Mutex

	blocked    atomic.Bool
	flowPaused atomic.Bool
}

func NewPublisher(cfg Config, logger *slog.Logger, opts ...Option) *Publisher {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.ConnectionName == "" {
		cfg.ConnectionName = "orderflow-publisher"
	}

	p := &Publisher{
		cfg:    cfg,
		logger: logger,
		dial:   Dial,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials the broker, opens the channel and declares the exchange.
// Calling it on a live publisher does nothing.
func (p *Publisher) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBrokerConnection, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.liveLocked() {
		return nil
	}
	p.releaseLocked()

	conn, err := p.dial(p.cfg.URL, p.cfg.ConnectionName, p.cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("%w: dial: %w", ErrBrokerConnection, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: open channel: %w", ErrBrokerConnection, err)
	}

	if err := ch.ExchangeDeclare(p.cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("%w: declare exchange %q: %w", ErrBrokerConnection, p.cfg.Exchange, err)
	}

	p.blocked.Store(false)
	p.flowPaused.Store(false)
	p.watch(conn, ch)

	p.conn = conn
	p.ch = ch

	p.logger.Info("connected to broker",
		slog.String("exchange", p.cfg.Exchange),
		slog.String("connection_name", p.cfg.ConnectionName),
	)
	return nil
}

// watch follows broker flow-control and close notifications. The library
// closes every notify channel on shutdown, which ends the goroutines.
func (p *Publisher) watch(conn Connection, ch Channel) {
	blockings := conn.NotifyBlocked(make(chan amqp.Blocking, 1))
	flows := ch.NotifyFlow(make(chan bool, 1))
	closes := conn.NotifyClose(make(chan *amqp.Error, 1))

	go func() {
		for b := range blockings {
			p.blocked.Store(b.Active)
			p.logger.Warn("broker connection flow control changed",
				slog.Bool("blocked", b.Active),
				slog.String("reason", b.Reason),
			)
		}
	}()

	go func() {
		for active := range flows {
			p.flowPaused.Store(!active)
			p.logger.Warn("broker channel flow changed", slog.Bool("active", active))
		}
	}()

	go func() {
		for amqpErr := range closes {
			if amqpErr != nil {
				p.logger.Error("broker connection closed", slog.String("error", amqpErr.Error()))
			}
		}
	}()
}

// PublishEvent wraps payload in an envelope stamped with the current time and
// publishes it under routingKey. The returned bool is false when the broker
// is applying flow control; the event has still been handed to the client
// library and is not retried.
func (p *Publisher) PublishEvent(ctx context.Context, routingKey string, payload any) (accepted bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "rabbitmq.publish",
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", p.cfg.Exchange),
		attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
	)
	start := p.now()
	defer func() {
		outcome := OutcomeSuccess
		switch {
		case err != nil:
			outcome = OutcomeError
		case !accepted:
			outcome = OutcomeBackpressure
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		p.metrics.RecordPublish(ctx, routingKey, outcome, p.now().Sub(start).Seconds())
		telemetry.EndSpan(span, err)
	}()

	if !routingKeyPattern.MatchString(routingKey) {
		return false, fmt.Errorf("%w: %q", ErrInvalidRoutingKey, routingKey)
	}

	// The channel is snapshotted so a publish stalled by the broker never
	// holds the lock Close needs. Closing the channel fails the stalled call.
	p.mu.RLock()
	live, ch := p.liveLocked(), p.ch
	p.mu.RUnlock()

	if !live {
		return false, ErrNotConnected
	}

	body, err := p.envelope(payload)
	if err != nil {
		return false, err
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	msg := amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now().UTC(),
		Body:         body,
	}

	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	if err := ch.PublishWithContext(ctx, p.cfg.Exchange, routingKey, false, false, msg); err != nil {
		return false, fmt.Errorf("publish %s: %w", routingKey, err)
	}

	if p.blocked.Load() || p.flowPaused.Load() {
		p.logger.WarnContext(ctx, "broker is applying flow control, event buffered",
			slog.String("routing_key", routingKey),
			slog.String("exchange", p.cfg.Exchange),
		)
		return false, nil
	}

	return true, nil
}

func (p *Publisher) envelope(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrInvalidPayload
	}

	stamp, err := json.Marshal(p.now().UTC().Format(timestampLayout))
	if err != nil {
		return nil, fmt.Errorf("encode timestamp: %w", err)
	}
	fields[timestampField] = stamp

	return json.Marshal(fields)
}

// Close closes the channel and then the connection. Both are attempted even
// if the first fails. Closing a disconnected publisher is a no-op.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil && p.ch == nil {
		return nil
	}

	err := p.releaseLocked()
	if err != nil {
		p.logger.ErrorContext(ctx, "broker connection closed with errors", slog.String("error", err.Error()))
		return err
	}

	p.logger.InfoContext(ctx, "broker connection closed")
	return nil
}

func (p *Publisher) releaseLocked() error {
	var errs []error

	if p.ch != nil {
		if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
		p.ch = nil
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
		p.conn = nil
	}

	return errors.Join(errs...)
}

// IsConnected reports whether both the connection and channel are open.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.liveLocked()
}

// Ping returns ErrNotConnected unless the publisher can currently publish.
func (p *Publisher) Ping(context.Context) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (p *Publisher) liveLocked() bool {
	return p.conn != nil && p.ch != nil && !p.conn.IsClosed() && !p.ch.IsClosed()
}
