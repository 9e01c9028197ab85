package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Altair29/J-GLOW-sub001/internal/store"
	"github.com/redis/go-redis/v9"
)

const (
	// StreamResults is the Redis stream for finished runs (players push,
	// archivers pop).
	StreamResults = "sim_results"

	// GroupArchivers is the consumer group for archive workers.
	GroupArchivers = "archivers"
)

// ErrNoMessages is returned by a read that came back empty.
var ErrNoMessages = errors.New("no messages")

// ResultMessage is one entry on the sim_results stream.
type ResultMessage struct {
	Token  string
	RunID  string
	Pack   string
	Record store.Record
}

// Queue wraps the result stream.
type Queue struct {
	client *redis.Client
}

// New creates a Queue from a Redis client.
func New(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// EnsureStream creates the archivers group (and the stream) if missing.
func (q *Queue) EnsureStream(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, StreamResults, GroupArchivers, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", GroupArchivers, StreamResults, err)
	}
	return nil
}

// PushResult adds a finished run to the stream.
func (q *Queue) PushResult(ctx context.Context, rec store.Record) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record %s: %w", rec.Token, err)
	}
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamResults,
		Values: map[string]any{
			"token":   rec.Token,
			"run_id":  rec.RunID,
			"pack":    rec.Pack,
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("push result: %w", err)
	}
	return id, nil
}

// readBlock bounds how long ReadResult waits, so the caller gets a chance
// to retry its pending entries while the stream is idle.
const readBlock = 5 * time.Second

// ReadResult reads one new result for consumer. It returns ErrNoMessages
// when nothing arrives within readBlock.
func (q *Queue) ReadResult(ctx context.Context, consumer string) (*ResultMessage, string, error) {
	return q.read(ctx, consumer, ">", readBlock)
}

// ReadPending re-reads one entry already delivered to consumer but not yet
// acked, the first with an ID greater than after ("0" starts from the
// oldest). It returns ErrNoMessages once the pending list is exhausted.
func (q *Queue) ReadPending(ctx context.Context, consumer, after string) (*ResultMessage, string, error) {
	return q.read(ctx, consumer, after, -1)
}

func (q *Queue) read(ctx context.Context, consumer, id string, block time.Duration) (*ResultMessage, string, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupArchivers,
		Consumer: consumer,
		Streams:  []string{StreamResults, id},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "", ErrNoMessages
	}
	if err != nil {
		return nil, "", fmt.Errorf("read result: %w", err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			res, err := decodeResult(msg.Values)
			return res, msg.ID, err
		}
	}
	return nil, "", ErrNoMessages
}

// Ack acknowledges a result message.
func (q *Queue) Ack(ctx context.Context, msgID string) error {
	return q.client.XAck(ctx, StreamResults, GroupArchivers, msgID).Err()
}

// Stats describes the stream backlog.
type Stats struct {
	Length  int64 // entries on the stream
	Pending int64 // delivered to archivers but not acked
}

// Status returns the stream length and the archivers' pending count.
func (q *Queue) Status(ctx context.Context) (Stats, error) {
	length, err := q.client.XLen(ctx, StreamResults).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("stream length: %w", err)
	}
	pending, err := q.client.XPending(ctx, StreamResults, GroupArchivers).Result()
	if err != nil {
		if strings.HasPrefix(err.Error(), "NOGROUP") {
			return Stats{Length: length}, nil
		}
		return Stats{}, fmt.Errorf("pending count: %w", err)
	}
	return Stats{Length: length, Pending: pending.Count}, nil
}

func decodeResult(values map[string]any) (*ResultMessage, error) {
	res := &ResultMessage{
		Token: getString(values, "token"),
		RunID: getString(values, "run_id"),
		Pack:  getString(values, "pack"),
	}
	if err := json.Unmarshal([]byte(getString(values, "payload")), &res.Record); err != nil {
		return res, fmt.Errorf("decode result %s: %w", res.Token, err)
	}
	return res, nil
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
