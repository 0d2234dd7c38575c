package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

const metaKeyTopic = "topic"

// Bus is an in-process pub/sub backed by watermill's GoChannel.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    *zerolog.Logger
}

// NewBus builds a bus. Publishing never waits for subscribers.
func NewBus(logger *zerolog.Logger) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	goChannel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		NewWatermillLogger(logger),
	)

	return &Bus{pubsub: goChannel, log: logger}
}

// Publish JSON-encodes payload and sends it to topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metaKeyTopic, topic)
	msg.SetContext(ctx)

	return b.pubsub.Publish(topic, msg)
}

// Subscribe runs handler for every message on topic until ctx is cancelled.
// Messages are always acked: a failing handler is logged, never retried.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			if err := handler(ctx, topic, msg.Payload); err != nil {
				b.log.Warn().Err(err).Str("topic", topic).Str("msg_id", msg.UUID).Msg("event handler failed")
			}
			msg.Ack()
		}
		b.log.Debug().Str("topic", topic).Msg("event subscription ended")
	}()

	return nil
}

// Close stops every subscription.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// SubscribeAudit logs every domain event at debug level.
func SubscribeAudit(ctx context.Context, bus *Bus, logger *zerolog.Logger) error {
	for _, topic := range []string{TopicMessageCommitted, TopicChannelCreated, TopicPresenceChanged} {
		err := bus.Subscribe(ctx, topic, func(_ context.Context, topic string, payload []byte) error {
			logger.Debug().Str("topic", topic).RawJSON("payload", payload).Msg("domain event")
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
