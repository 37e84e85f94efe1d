package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"stream-service/internal/websocket"

	"github.com/IBM/sarama"
)

// Envelope actions
const (
	ActionUpdate = "update"
	ActionRevoke = "revoke"
)

// Envelope is the JSON record collaborators write to the updates topic.
type Envelope struct {
	Action  string            `json:"action"`
	Update  *websocket.Update `json:"update,omitempty"`
	By      string            `json:"by,omitempty"`
	Session string            `json:"session,omitempty"`
	User    string            `json:"user,omitempty"`
	Project string            `json:"project,omitempty"`
}

// Broker is the subset of the hub the consumer drives.
type Broker interface {
	Publish(update *websocket.Update) error
	Revoke(userID, projectID string) int
}

func newConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_0_0_0
	config.ClientID = clientID
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	return config
}

// InitKafkaProducer builds the producer collaborators use to feed the topic.
func InitKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := newConfig("stream-service-producer")
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	// Keyed by project or user so one target's updates stay ordered
	config.Producer.Partitioner = sarama.NewHashPartitioner

	return sarama.NewSyncProducer(brokers, config)
}

// NewMessage encodes env for topic, keyed by its routing target.
func NewMessage(topic string, env Envelope) (*sarama.ProducerMessage, error) {
	value, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	key := env.Project
	if env.Update != nil {
		key = env.Update.Project
		if key == "" {
			key = env.Update.User
		}
	}

	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}, nil
}

// Consumer feeds updates and revocations from a consumer group into the hub.
type Consumer struct {
	group  sarama.ConsumerGroup
	topic  string
	broker Broker
}

func NewConsumer(brokers []string, groupID, topic string, broker Broker) (*Consumer, error) {
	group, err := sarama.NewConsumerGroup(brokers, groupID, newConfig("stream-service"))
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return &Consumer{group: group, topic: topic, broker: broker}, nil
}

// Run consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *Consumer) Run(ctx context.Context) {
	go func() {
		for err := range c.group.Errors() {
			slog.Error("Kafka consumer error", "error", err)
		}
	}()

	handler := &groupHandler{broker: c.broker}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			slog.Error("Kafka consume failed", "topic", c.topic, "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	broker Broker
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := dispatch(h.broker, msg.Value); err != nil {
				slog.Warn("Dropping stream event",
					"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			}
			// Malformed records are marked too so they cannot wedge the partition
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func dispatch(broker Broker, value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Action {
	case ActionUpdate:
		if env.Update == nil {
			return fmt.Errorf("%w: update envelope without update", websocket.ErrBadRequest)
		}
		if env.By != "" {
			env.Update.From(env.By, env.Session)
		}
		return broker.Publish(env.Update)
	case ActionRevoke:
		if env.User == "" || env.Project == "" {
			return fmt.Errorf("%w: revoke envelope requires user and project", websocket.ErrBadRequest)
		}
		broker.Revoke(env.User, env.Project)
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", websocket.ErrBadRequest, env.Action)
	}
}
