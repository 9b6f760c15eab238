package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Queue name suffixes. The base name comes from configuration.
const (
	processingSuffix = ":processing"
	deadLetterSuffix = ":dead_letter"
	publishedSetKey  = "voting_event_ids"
)

// redisQueue is the subset of the go-redis client the queue uses
type redisQueue interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	BRPopLPush(ctx context.Context, source, destination string, timeout time.Duration) *redis.StringCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisMQ is a reliable list-backed event queue. Events move from the main
// list to a processing list while a handler runs and land in a dead-letter
// list after maxRetries failures.
type RedisMQ struct {
	client     redisQueue
	queue      string
	log        *zap.Logger
	maxRetries int
	pollWait   time.Duration

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewRedisMQ creates a reliable queue on the given Redis list
func NewRedisMQ(client redisQueue, queue string, log *zap.Logger) *RedisMQ {
	return &RedisMQ{
		client:     client,
		queue:      queue,
		log:        log.Named("redis_mq"),
		maxRetries: 3,
		pollWait:   time.Second,
	}
}

func (r *RedisMQ) processingQueue() string { return r.queue + processingSuffix }
func (r *RedisMQ) deadLetterQueue() string { return r.queue + deadLetterSuffix }

// Publish pushes an event onto the main queue. An event id already seen in
// the last 48 hours is skipped.
func (r *RedisMQ) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	added, err := r.client.SAdd(ctx, publishedSetKey, event.ID).Result()
	if err != nil {
		r.log.Warn("idempotency check failed", zap.String("event_id", event.ID), zap.Error(err))
	} else if added == 0 {
		r.log.Debug("event already published", zap.String("event_id", event.ID))
		return nil
	}
	r.client.Expire(ctx, publishedSetKey, 48*time.Hour)

	if err := r.client.LPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("push event to %s: %w", r.queue, err)
	}
	return nil
}

// Start launches the consumer loop. It is a no-op when already running.
func (r *RedisMQ) Start(handler Handler) error {
	if handler == nil {
		return errors.New("redis mq: handler is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return nil
	}
	r.isRunning = true
	r.stopChan = make(chan struct{})

	r.wg.Add(1)
	go r.consumeLoop(handler)
	r.log.Info("consumer started", zap.String("queue", r.queue))
	return nil
}

// Stop signals the consumer and waits for in-flight events.
func (r *RedisMQ) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("consumer stopped", zap.String("queue", r.queue))
}

func (r *RedisMQ) consumeLoop(handler Handler) {
	defer r.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-r.stopChan:
			return
		default:
		}

		msg, err := r.client.BRPopLPush(ctx, r.queue, r.processingQueue(), r.pollWait).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				r.log.Warn("dequeue failed", zap.Error(err))
				time.Sleep(r.pollWait)
			}
			continue
		}
		r.process(ctx, handler, msg)
	}
}

func (r *RedisMQ) process(ctx context.Context, handler Handler, msg string) {
	defer r.client.LRem(ctx, r.processingQueue(), 1, msg)

	var event Event
	if err := json.Unmarshal([]byte(msg), &event); err != nil {
		r.log.Error("undecodable event moved to dead letter", zap.Error(err))
		r.client.LPush(ctx, r.deadLetterQueue(), msg)
		return
	}

	if err := handler(ctx, event); err != nil {
		event.Attempts++
		data, _ := json.Marshal(event)
		if event.Attempts >= r.maxRetries {
			r.log.Error("event exceeded retries, moved to dead letter",
				zap.String("event_id", event.ID), zap.Int("attempts", event.Attempts), zap.Error(err))
			r.client.LPush(ctx, r.deadLetterQueue(), data)
			return
		}
		r.log.Warn("event handler failed, requeued",
			zap.String("event_id", event.ID), zap.Int("attempts", event.Attempts), zap.Error(err))
		r.client.LPush(ctx, r.queue, data)
	}
}

// RetryDeadLetters moves every dead-lettered event back to the main queue.
func (r *RedisMQ) RetryDeadLetters(ctx context.Context) (int, error) {
	messages, err := r.client.LRange(ctx, r.deadLetterQueue(), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("read dead letters: %w", err)
	}

	count := 0
	for _, msg := range messages {
		if err := r.client.LPush(ctx, r.queue, msg).Err(); err != nil {
			r.log.Warn("requeue dead letter failed", zap.Error(err))
			continue
		}
		r.client.LRem(ctx, r.deadLetterQueue(), 1, msg)
		count++
	}
	return count, nil
}

// QueueStats reports the length of each list
func (r *RedisMQ) QueueStats(ctx context.Context) map[string]int64 {
	return map[string]int64{
		"main_queue":        r.client.LLen(ctx, r.queue).Val(),
		"processing_queue":  r.client.LLen(ctx, r.processingQueue()).Val(),
		"dead_letter_queue": r.client.LLen(ctx, r.deadLetterQueue()).Val(),
	}
}
