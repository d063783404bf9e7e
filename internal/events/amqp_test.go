// AngelaMos | 2026
// amqp_test.go

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent       []published
	publishErr error
	closes     int
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closes++
	return nil
}

func TestAMQPPublisherRoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(&amqpLink{ch: ch}, "booking.events", nil, 0)

	event := New(BookingCreated, "user-1", map[string]string{"id": "b1"})
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, "booking.events", got.exchange)
	assert.Equal(t, "booking.created", got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, event.ID, got.msg.MessageId)
	assert.Nil(t, got.msg.Headers)

	var decoded struct {
		Type    string            `json:"type"`
		ActorID string            `json:"actor_id"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, "booking.created", decoded.Type)
	assert.Equal(t, "user-1", decoded.ActorID)
	assert.Equal(t, "b1", decoded.Data["id"])
}

func TestAMQPPublisherWrapsFailures(t *testing.T) {
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	p := newAMQPPublisher(&amqpLink{ch: ch}, "booking.events", nil, 0)

	err := p.Publish(context.Background(), New(BookingDeleted, "", nil))
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestAMQPPublisherClose(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(&amqpLink{ch: ch}, "booking.events", nil, 0)
	assert.NoError(t, p.Ping(context.Background()))

	require.NoError(t, p.Close())
	assert.Error(t, p.Ping(context.Background()))
	require.NoError(t, p.Close())
	assert.Equal(t, 1, ch.closes)

	err := p.Publish(context.Background(), New(BookingUpdated, "", nil))
	assert.Error(t, err)
	assert.Empty(t, ch.sent)
}

func TestAMQPPublisherReconnectsAfterBrokerDrop(t *testing.T) {
	first := &fakeChannel{}
	dropped := make(chan *amqp.Error, 1)

	second := &fakeChannel{}
	gate := make(chan struct{})
	dials := 0
	dial := func() (*amqpLink, error) {
		<-gate
		dials++
		return &amqpLink{ch: second, closed: make(chan *amqp.Error)}, nil
	}

	p := newAMQPPublisher(
		&amqpLink{ch: first, closed: dropped},
		"booking.events",
		dial,
		time.Millisecond,
	)
	t.Cleanup(func() { _ = p.Close() })
	ctx := context.Background()

	require.NoError(t, p.Ping(ctx))
	dropped <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}

	require.Eventually(t, func() bool {
		return errors.Is(p.Ping(ctx), ErrBrokerUnavailable)
	}, time.Second, time.Millisecond)
	err := p.Publish(ctx, New(BookingCreated, "", nil))
	assert.ErrorIs(t, err, ErrBrokerUnavailable)

	close(gate)
	require.Eventually(t, func() bool {
		return p.Ping(ctx) == nil
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Publish(ctx, New(BookingUpdated, "", nil)))
	assert.Len(t, second.sent, 1)
	assert.Empty(t, first.sent)
	assert.Equal(t, 1, first.closes)
	assert.Equal(t, 1, dials)
}

func TestAMQPPublisherCloseStopsReconnecting(t *testing.T) {
	dropped := make(chan *amqp.Error, 1)
	dialed := make(chan struct{}, 1)
	dial := func() (*amqpLink, error) {
		select {
		case dialed <- struct{}{}:
		default:
		}
		return nil, errors.New("connection refused")
	}

	p := newAMQPPublisher(
		&amqpLink{ch: &fakeChannel{}, closed: dropped},
		"booking.events",
		dial,
		time.Millisecond,
	)
	dropped <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "gone"}

	select {
	case <-dialed:
	case <-time.After(time.Second):
		t.Fatal("no reconnect attempt")
	}

	require.NoError(t, p.Close())
	assert.Error(t, p.Ping(context.Background()))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(BookingCreated, "", nil)))
	assert.NoError(t, p.Close())
}
