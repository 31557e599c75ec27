// Package events 后台变更事件发布（RabbitMQ）
//
// 看板上的新建/更新/删除成功后发布一条事件，
// 其他服务（搜索索引、缓存、报表）按routing key订阅：
//
//	admin.books.create
//	admin.authors.delete
//	admin.#            （订阅全部）
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-admin/internal/dashboard"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-admin/pkg/metrics"
)

// RoutingKeyPrefix 路由键前缀
const RoutingKeyPrefix = "admin"

// channel *amqp.Channel中用到的方法
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher 变更事件发布者，实现dashboard.MutationNotifier
type Publisher struct {
	conn     io.Closer
	ch       channel
	exchange string
	log      logrus.FieldLogger
}

// NewPublisher 连接RabbitMQ并声明持久化的topic交换机
func NewPublisher(cfg config.MQConfig, log logrus.FieldLogger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	p, err := newPublisher(conn, ch, cfg.Exchange, log)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(conn io.Closer, ch channel, exchange string, log logrus.FieldLogger) (*Publisher, error) {
	// durable=true, autoDelete=false, internal=false, noWait=false
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("声明Exchange失败: %w", err)
	}

	log.WithField("exchange", exchange).Info("mutation event publisher ready")
	return &Publisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// RoutingKey admin.<entity>.<action>
func RoutingKey(entity, action string) string {
	return fmt.Sprintf("%s.%s.%s", RoutingKeyPrefix, entity, action)
}

// NotifyMutation 发布一条持久化的JSON消息
func (p *Publisher) NotifyMutation(ctx context.Context, m dashboard.Mutation) error {
	key := RoutingKey(m.Entity, m.Action)
	err := p.publish(ctx, key, m)
	metrics.RecordEventPublished(key, err)
	return err
}

func (p *Publisher) publish(ctx context.Context, key string, m dashboard.Mutation) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	ts := m.At
	if ts.IsZero() {
		ts = time.Now()
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    ts,
			Type:         key,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"routing_key": key,
		"id":          m.ID,
	}).Debug("mutation event published")
	return nil
}

// Close 关闭channel与连接
func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopNotifier 未启用MQ时使用
type NopNotifier struct{}

// NotifyMutation 什么也不做
func (NopNotifier) NotifyMutation(context.Context, dashboard.Mutation) error { return nil }

// NewNotifier 按配置返回Publisher或NopNotifier，cleanup用于关闭连接
func NewNotifier(cfg config.MQConfig, log logrus.FieldLogger) (dashboard.MutationNotifier, func(), error) {
	if !cfg.Enabled {
		return NopNotifier{}, func() {}, nil
	}
	p, err := NewPublisher(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return p, func() {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("close mq publisher failed")
		}
	}, nil
}
