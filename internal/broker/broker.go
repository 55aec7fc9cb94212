package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"socialcore/internal/model"
)

// Broker is the C2 contract: publish/subscribe by topic string, with
// a shared backplane so a publish on one process reaches subscribers
// on every process.
type Broker interface {
	// Publish is best effort; backplane failures are logged but never
	// returned to callers that only need fire-and-forget semantics.
	// The error return exists for callers (fanout) that want to log
	// with richer context; it must never be used to roll back a write.
	Publish(ctx context.Context, topic model.Topic, env Envelope) error

	// Subscribe registers handler to be invoked, on a dedicated
	// goroutine, for every envelope published to topic after the
	// subscription is established (plus any of its own redelivered
	// pending entries after a crash).
	Subscribe(ctx context.Context, topic model.Topic, handler func(Envelope)) (SubscriptionID, error)

	// Unsubscribe is idempotent. It also removes the subscription's
	// consumer group from the backplane, since every Subscribe mints a
	// fresh one.
	Unsubscribe(id SubscriptionID) error

	Close() error
}

type SubscriptionID string

const streamPrefix = "topic:"

func streamKey(topic model.Topic) string {
	return streamPrefix + string(topic)
}

// RedisBroker implements Broker using Redis Streams: one stream per
// topic, one consumer group per subscription so that every
// subscriber receives its own copy of every envelope (broadcast,
// not work-queue, semantics).
type RedisBroker struct {
	client *Client

	mu   sync.Mutex
	subs map[SubscriptionID]subscription
}

type subscription struct {
	cancel context.CancelFunc
	stream string
	group  string
}

func NewRedisBroker(client *Client) *RedisBroker {
	return &RedisBroker{
		client: client,
		subs:   make(map[SubscriptionID]subscription),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, topic model.Topic, env Envelope) error {
	start := time.Now()
	values, err := env.toValues()
	if err != nil {
		log.Printf("[Broker] Publish FAILED: topic=%s err=%v", topic, err)
		return fmt.Errorf("serialize envelope: %w", err)
	}

	stream := streamKey(topic)
	msgID, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Broker] Publish FAILED: topic=%s err=%v", topic, err)
		return fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Broker] Publish OK: topic=%s action=%s msgID=%s duration=%v",
		topic, env.Action, msgID, time.Since(start))
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic model.Topic, handler func(Envelope)) (SubscriptionID, error) {
	id := SubscriptionID(uuid.NewString())
	group := "sub:" + string(id)
	stream := streamKey(topic)

	// "$" means this group only sees envelopes published after it is
	// created, matching the contract in §4.2 ("handler is invoked on
	// each envelope published to this topic after subscription").
	if err := b.client.XGroupCreateMkStream(ctx, stream, group, "$").Err(); err != nil {
		if !strings.Contains(err.Error(), "BUSYGROUP") {
			log.Printf("[Broker] Subscribe FAILED: topic=%s err=%v", topic, err)
			return "", fmt.Errorf("create consumer group: %w", err)
		}
	}

	subCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.subs[id] = subscription{cancel: cancel, stream: stream, group: group}
	b.mu.Unlock()

	go b.runSubscription(subCtx, stream, group, string(id), handler)

	log.Printf("[Broker] Subscribe OK: topic=%s subscription=%s", topic, id)
	return id, nil
}

func (b *RedisBroker) Unsubscribe(id SubscriptionID) error {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if !ok {
		return nil // idempotent
	}
	sub.cancel()
	b.destroyGroup(sub.stream, sub.group)
	log.Printf("[Broker] Unsubscribe OK: subscription=%s", id)
	return nil
}

// destroyGroup removes a subscription's consumer group so repeated
// subscribe/unsubscribe cycles (e.g. a flaky client reconnecting)
// don't leave it behind forever on the stream.
func (b *RedisBroker) destroyGroup(stream, group string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.client.XGroupDestroy(ctx, stream, group).Err(); err != nil {
		log.Printf("[Broker] XGroupDestroy FAILED: stream=%s group=%s err=%v", stream, group, err)
	}
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[SubscriptionID]subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		b.destroyGroup(sub.stream, sub.group)
	}
	return b.client.Close()
}

// runSubscription mirrors the teacher's worker.Manager.runWorker loop:
// drain any pending (crash-recovered) entries first, then block for
// new ones, delivering each to handler and acking after the handler
// returns.
func (b *RedisBroker) runSubscription(ctx context.Context, stream, group, consumer string, handler func(Envelope)) {
	b.deliverPending(ctx, stream, group, consumer, handler)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Printf("[Broker] Read FAILED: stream=%s group=%s err=%v", stream, group, err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				b.deliverOne(ctx, stream, group, msg, handler)
			}
		}
	}
}

func (b *RedisBroker) deliverPending(ctx context.Context, stream, group, consumer string, handler func(Envelope)) {
	res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    64,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[Broker] ReadPending FAILED: stream=%s group=%s err=%v", stream, group, err)
		}
		return
	}
	for _, s := range res {
		for _, msg := range s.Messages {
			b.deliverOne(ctx, stream, group, msg, handler)
		}
	}
}

func (b *RedisBroker) deliverOne(ctx context.Context, stream, group string, msg redis.XMessage, handler func(Envelope)) {
	env, err := parseEnvelope(msg.Values)
	if err != nil {
		log.Printf("[Broker] deliver parse error: msgID=%s err=%v", msg.ID, err)
		b.client.XAck(ctx, stream, group, msg.ID)
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Broker] handler panic: stream=%s msgID=%s recovered=%v", stream, msg.ID, r)
			}
		}()
		handler(env)
	}()

	if err := b.client.XAck(ctx, stream, group, msg.ID).Err(); err != nil {
		log.Printf("[Broker] Ack FAILED: stream=%s group=%s msgID=%s err=%v", stream, group, msg.ID, err)
	}
}
