package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"awards-voting-backend/config"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"go.uber.org/zap"
)

// syncSender is the part of rocketmq.Producer the publisher needs
type syncSender interface {
	SendSync(ctx context.Context, msgs ...*primitive.Message) (*primitive.SendResult, error)
	Shutdown() error
}

// RocketMQPublisher sends events to a RocketMQ topic. Messages are tagged
// with the event type and sharded by session, so events of one session
// keep their order.
type RocketMQPublisher struct {
	producer syncSender
	topic    string
	log      *zap.Logger
}

// NewRocketMQPublisher starts a producer against the configured name servers.
func NewRocketMQPublisher(cfg config.RocketMQConfig, log *zap.Logger) (*RocketMQPublisher, error) {
	p, err := rocketmq.NewProducer(
		producer.WithNameServer(cfg.NameServers),
		producer.WithGroupName(cfg.GroupName),
		producer.WithRetry(cfg.Retries),
		producer.WithSendMsgTimeout(10*time.Second),
		producer.WithVIPChannel(false),
	)
	if err != nil {
		return nil, fmt.Errorf("create rocketmq producer: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("start rocketmq producer: %w", err)
	}
	log.Info("rocketmq producer started",
		zap.Strings("name_servers", cfg.NameServers), zap.String("topic", cfg.Topic))
	return newRocketMQPublisher(p, cfg.Topic, log), nil
}

func newRocketMQPublisher(p syncSender, topic string, log *zap.Logger) *RocketMQPublisher {
	return &RocketMQPublisher{producer: p, topic: topic, log: log.Named("rocketmq")}
}

// Publish sends the event synchronously, sharded by session
func (r *RocketMQPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := primitive.NewMessage(r.topic, body).
		WithTag(string(event.Type)).
		WithKeys([]string{event.ID}).
		WithShardingKey(event.SessionID)

	res, err := r.producer.SendSync(ctx, msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", event.Type, err)
	}
	if res.Status != primitive.SendOK {
		return fmt.Errorf("send %s: broker status %d", event.Type, res.Status)
	}
	r.log.Debug("event sent", zap.String("event_id", event.ID), zap.String("msg_id", res.MsgID))
	return nil
}

// Close shuts the producer down
func (r *RocketMQPublisher) Close() error {
	return r.producer.Shutdown()
}
