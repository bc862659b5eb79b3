package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutClient(t *testing.T) {
	Rdb = nil
	err := PublishGameAction(context.Background(), GameActionRecord{GameID: uuid.New()})
	assert.Error(t, err)
}

func TestQueueNameOverride(t *testing.T) {
	assert.Equal(t, DefaultQueueName, QueueName())
	t.Setenv("HISTORIAN_QUEUE_NAME", "other")
	assert.Equal(t, "other", QueueName())
}

// Needs a local Redis; skipped otherwise.
func TestPushAndPopGameAction(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: getEnv("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	queue := "set_actions_test_" + uuid.NewString()
	defer rdb.Del(context.Background(), queue)

	rec := GameActionRecord{
		GameID:        uuid.New(),
		ActionIndex:   3,
		Actor:         1,
		ActionType:    "claim_point",
		ActionPayload: map[string]interface{}{"slots": []interface{}{float64(0), float64(4), float64(7)}},
		Timestamp:     time.Now().UnixMilli(),
	}
	require.NoError(t, PushGameAction(ctx, rdb, queue, rec))

	got, ok, err := PopGameAction(ctx, rdb, queue, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	_, ok, err = PopGameAction(ctx, rdb, queue, 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "an empty queue times out")
}
