package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-admin/internal/dashboard"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	sent       []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "admin.books.create", RoutingKey("books", dashboard.ActionCreate))
	assert.Equal(t, "admin.inventory-movements.delete", RoutingKey("inventory-movements", dashboard.ActionDelete))
}

func TestPublisher_NotifyMutation(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(nil, ch, "bookstore.admin", quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"bookstore.admin:topic"}, ch.declared)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err = p.NotifyMutation(context.Background(), dashboard.Mutation{
		Entity: "books", Action: dashboard.ActionUpdate, ID: "b1", At: at,
	})
	require.NoError(t, err)

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, "bookstore.admin", sent.exchange)
	assert.Equal(t, "admin.books.update", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, at, sent.msg.Timestamp)
	assert.NotEmpty(t, sent.msg.MessageId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(sent.msg.Body, &body))
	assert.Equal(t, "books", body["entity"])
	assert.Equal(t, "update", body["action"])
	assert.Equal(t, "b1", body["id"])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_Errors(t *testing.T) {
	_, err := newPublisher(nil, &fakeChannel{declareErr: errors.New("access refused")}, "x", quietLogger())
	assert.Error(t, err)

	p, err := newPublisher(nil, &fakeChannel{publishErr: amqp.ErrClosed}, "x", quietLogger())
	require.NoError(t, err)
	err = p.NotifyMutation(context.Background(), dashboard.Mutation{Entity: "books", Action: "delete", ID: "b1"})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestNewNotifier_Disabled(t *testing.T) {
	n, cleanup, err := NewNotifier(config.MQConfig{Enabled: false}, quietLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, NopNotifier{}, n)
	assert.NoError(t, n.NotifyMutation(context.Background(), dashboard.Mutation{}))
}
