// AngelaMos | 2026
// amqp.go

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/carterperez-dev/booking-api/internal/core"
)

const exchangeKind = "topic"

var ErrBrokerUnavailable = errors.New("amqp broker unavailable")

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpLink is one live connection and channel. closed fires when the broker
// drops the channel or the connection under it.
type amqpLink struct {
	ch     amqpChannel
	conn   io.Closer
	closed <-chan *amqp.Error
}

func (l *amqpLink) shutdown() error {
	var errs []error
	if err := l.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	if l.conn != nil {
		if err := l.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

type linkDialer func() (*amqpLink, error)

// AMQPPublisher sends events to a durable topic exchange. The routing key
// is the event type, so consumers can bind on patterns like "booking.*".
// A dropped broker connection is redialed in the background; publishes in
// the meantime fail fast.
type AMQPPublisher struct {
	mu       sync.Mutex
	link     *amqpLink
	exchange string
	closed   bool

	dial  linkDialer
	delay time.Duration
	done  chan struct{}
}

// DialAMQP connects to url, retrying up to retries times, and declares
// exchange.
func DialAMQP(
	url, exchange string,
	retries int,
	delay time.Duration,
) (*AMQPPublisher, error) {
	dial := amqpDialer(url, exchange)

	var (
		link *amqpLink
		err  error
	)
	for attempt := 0; attempt < max(retries, 1); attempt++ {
		link, err = dial()
		if err == nil {
			break
		}
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}

	return newAMQPPublisher(link, exchange, dial, delay), nil
}

func amqpDialer(url, exchange string) linkDialer {
	return func() (*amqpLink, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("dial amqp: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open amqp channel: %w", err)
		}

		err = ch.ExchangeDeclare(
			exchange,
			exchangeKind,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
		}

		return &amqpLink{
			ch:     ch,
			conn:   conn,
			closed: ch.NotifyClose(make(chan *amqp.Error, 1)),
		}, nil
	}
}

// newAMQPPublisher starts supervising link when dial is set.
func newAMQPPublisher(
	link *amqpLink,
	exchange string,
	dial linkDialer,
	delay time.Duration,
) *AMQPPublisher {
	p := &AMQPPublisher{
		link:     link,
		exchange: exchange,
		dial:     dial,
		delay:    delay,
		done:     make(chan struct{}),
	}
	if dial != nil && link.closed != nil {
		go p.supervise(link)
	}
	return p
}

// supervise waits for the current link to drop and replaces it.
func (p *AMQPPublisher) supervise(link *amqpLink) {
	for {
		select {
		case <-p.done:
			return
		case amqpErr := <-link.closed:
			p.mu.Lock()
			if p.link == link {
				p.link = nil
			}
			p.mu.Unlock()
			_ = link.shutdown() //nolint:errcheck // already broken

			slog.Warn("amqp link lost, reconnecting", "error", amqpErr)
		}

		link = p.redial()
		if link == nil {
			return
		}
	}
}

func (p *AMQPPublisher) redial() *amqpLink {
	for {
		select {
		case <-p.done:
			return nil
		case <-time.After(p.delay):
		}

		link, err := p.dial()
		if err != nil {
			slog.Warn("amqp reconnect failed", "error", err)
			continue
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = link.shutdown() //nolint:errcheck // publisher is gone
			return nil
		}
		p.link = link
		p.mu.Unlock()

		slog.Info("amqp link restored", "exchange", p.exchange)
		return link
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	}
	if traceID := core.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers = amqp.Table{"trace_id": traceID}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("publish: publisher closed")
	}
	if p.link == nil {
		return fmt.Errorf("publish %s: %w", event.Type, ErrBrokerUnavailable)
	}

	if err := p.link.ch.Publish(p.exchange, string(event.Type), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)

	if p.link == nil {
		return nil
	}
	err := p.link.shutdown()
	p.link = nil
	return err
}

// Ping reports whether a broker link is currently up.
func (p *AMQPPublisher) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("publisher closed")
	}
	if p.link == nil {
		return ErrBrokerUnavailable
	}
	return nil
}
