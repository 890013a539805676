package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aidevlab/aidev-chat/internal/bus"
	"github.com/aidevlab/aidev-chat/internal/config"
	"github.com/aidevlab/aidev-chat/internal/domain"
	redisrepo "github.com/aidevlab/aidev-chat/internal/repository/redis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	readBlock    = 5 * time.Second
	readCount    = 16
	claimMinIdle = time.Minute
)

// StreamBus implements bus.Bus on a Redis Stream with a consumer group.
// Entries carry a conversation grouping key and a uniqueness token; a
// single consumer reads the stream in order, which keeps envelopes for one
// conversation ordered relative to each other. Unacknowledged entries are
// reclaimed after claimMinIdle, giving at-least-once delivery.
type StreamBus struct {
	client   *redisrepo.Client
	stream   string
	group    string
	consumer string
}

// NewStreamBus creates the bus and its consumer group if missing.
func NewStreamBus(ctx context.Context, client *redisrepo.Client, cfg config.BusConfig) (*StreamBus, error) {
	consumer := cfg.Consumer
	if consumer == "" {
		host, _ := os.Hostname()
		consumer = fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
	}

	b := &StreamBus{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: consumer,
	}

	err := client.Client().XGroupCreateMkStream(ctx, b.stream, b.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return b, nil
}

func isBusyGroup(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

// Send enqueues an envelope on the stream.
func (b *StreamBus) Send(ctx context.Context, env *domain.AgentEnvelope) error {
	if err := env.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBus, err)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: marshal envelope: %v", domain.ErrBus, err)
	}

	err = b.client.Client().XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{
			"group":   env.ConversationID,
			"dedup":   env.DedupToken(),
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: xadd: %v", domain.ErrBus, err)
	}

	log.Debug().
		Str("conversation_id", env.ConversationID).
		Str("source", env.SourceAgent.String()).
		Str("target", env.TargetAgent.String()).
		Bool("requires_response", env.RequiresResponse).
		Msg("envelope sent")
	return nil
}

// Consume reads envelopes until ctx is done.
func (b *StreamBus) Consume(ctx context.Context, h bus.Handler) error {
	rdb := b.client.Client()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Reclaim entries abandoned by dead consumers.
		b.reclaim(ctx, h)

		streams, err := rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err != nil {
			log.Error().Err(err).Msg("bus read failed")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				b.dispatch(ctx, msg, h)
			}
		}
	}
}

func (b *StreamBus) reclaim(ctx context.Context, h bus.Handler) {
	msgs, _, err := b.client.Client().XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   b.stream,
		Group:    b.group,
		Consumer: b.consumer,
		MinIdle:  claimMinIdle,
		Start:    "0-0",
		Count:    readCount,
	}).Result()
	if err != nil || len(msgs) == 0 {
		return
	}
	for _, msg := range msgs {
		b.dispatch(ctx, msg, h)
	}
}

func (b *StreamBus) dispatch(ctx context.Context, msg redis.XMessage, h bus.Handler) {
	payload, _ := msg.Values["payload"].(string)

	var env domain.AgentEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		// Poison entry: ack so it is not redelivered forever.
		log.Error().Err(err).Str("id", msg.ID).Msg("dropping malformed envelope")
		b.client.Client().XAck(ctx, b.stream, b.group, msg.ID)
		return
	}

	if err := h(ctx, &env); err != nil {
		log.Error().Err(err).
			Str("id", msg.ID).
			Str("conversation_id", env.ConversationID).
			Msg("envelope handling failed, leaving unacked")
		return
	}

	if err := b.client.Client().XAck(ctx, b.stream, b.group, msg.ID).Err(); err != nil {
		log.Error().Err(err).Str("id", msg.ID).Msg("failed to ack envelope")
	}
}
