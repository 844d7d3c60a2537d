package kafka

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	skafka "github.com/segmentio/kafka-go"
)

// Handler processes one fetched message. Returning an error leaves the
// offset uncommitted so the broker redelivers the message.
type Handler func(ctx context.Context, key []byte, value []byte) error

// Consumer reads a topic inside a consumer group. Multiple instances of the
// worker share the group and split partitions between them.
type Consumer struct {
	reader *skafka.Reader
	log    zerolog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader: skafka.NewReader(skafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		log: log.With().Str("component", "kafka_consumer").Str("topic", topic).Logger(),
	}
}

// Start fetches messages until ctx is cancelled. Each message gets its own
// processing deadline; failed messages are not committed and come back.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.log.Info().Str("group", c.reader.Config().GroupID).Msg("kafka consumer started")

	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Msg("fetch message failed")
			time.Sleep(time.Second)
			continue
		}

		processCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = handler(processCtx, m.Key, m.Value)
		cancel()

		if err != nil {
			// No commit: the broker redelivers this offset after a rebalance
			// or restart, which is the retry mechanism for side effects.
			c.log.Error().Err(err).Int64("offset", m.Offset).Msg("message processing failed")
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Error().Err(err).Int64("offset", m.Offset).Msg("offset commit failed")
		}
	}
}

// Close disconnects from the broker.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
