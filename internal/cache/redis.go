// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup; while it is nil
// game actions are not logged.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for game action logs.
var DefaultQueueName = "set_actions"

// ActorDealer is the actor of actions taken by the dealer rather than a player.
const ActorDealer = -1

// GameActionRecord is one entry of a game's action log, as consumed by the historian.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	Actor         int                    `json:"actor"` // player id, or ActorDealer
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"` // epoch millis
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	client, err := NewClient(getEnv("REDIS_ADDR", "localhost:6379"), getEnvInt("REDIS_DB", 0))
	if err != nil {
		return err
	}
	Rdb = client
	return nil
}

// NewClient dials Redis and pings it.
func NewClient(addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

// QueueName returns the action queue name, overridable with HISTORIAN_QUEUE_NAME.
func QueueName() string {
	return getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
}

// PublishGameAction serializes the given record to JSON, then pushes it to the Redis queue.
func PublishGameAction(ctx context.Context, record GameActionRecord) error {
	if Rdb == nil {
		return errors.New("redis client not connected")
	}
	return PushGameAction(ctx, Rdb, QueueName(), record)
}

// PushGameAction appends record to queue on client.
func PushGameAction(ctx context.Context, client redis.Cmdable, queue string, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := client.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// PopGameAction waits up to timeout for the next record on queue. ok is false when the
// wait timed out.
func PopGameAction(ctx context.Context, client redis.Cmdable, queue string, timeout time.Duration) (rec GameActionRecord, ok bool, err error) {
	res, err := client.BLPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("BLPop %s: %w", queue, err)
	}
	// res[0] is the queue name and res[1] the payload
	if len(res) < 2 {
		return rec, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return rec, false, fmt.Errorf("invalid action record: %w", err)
	}
	return rec, true, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
