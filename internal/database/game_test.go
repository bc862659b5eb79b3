package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/setdealer/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveWithoutDatabase(t *testing.T) {
	saved := DB
	DB = nil
	defer func() { DB = saved }()

	ctx := context.Background()
	assert.ErrorIs(t, RecordGameResults(ctx, uuid.New(), []int{1}, []int{0}), ErrNoDatabase)
	assert.ErrorIs(t, InsertGameActions(ctx, nil), ErrNoDatabase)
	assert.ErrorIs(t, MarkGameAbandoned(ctx, uuid.New()), ErrNoDatabase)
}

func TestConnStringFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_HOST", "")
	assert.Empty(t, ConnString())

	t.Setenv("POSTGRES_USER", "set")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "5432")
	t.Setenv("PG_DATABASE", "games")
	assert.Equal(t, "postgres://set:pw@db:5432/games", ConnString())

	t.Setenv("DATABASE_URL", "postgres://override")
	assert.Equal(t, "postgres://override", ConnString())
}

// Needs DATABASE_URL pointing at a scratch database; skipped otherwise.
func TestRecordGameAndActions(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, ConnectDB(ctx, url))
	defer Close()
	require.NoError(t, EnsureSchema(ctx, DB))

	gameID := uuid.New()
	records := []cache.GameActionRecord{
		{GameID: gameID, ActionIndex: 1, Actor: cache.ActorDealer, ActionType: "game_start", Timestamp: time.Now().UnixMilli()},
		{GameID: gameID, ActionIndex: 2, Actor: 0, ActionType: "claim_point", Timestamp: time.Now().UnixMilli()},
	}
	require.NoError(t, InsertGameActions(ctx, records))
	// replays are ignored
	require.NoError(t, InsertGameActions(ctx, records))

	var actions int
	require.NoError(t, DB.QueryRow(ctx, `SELECT COUNT(*) FROM game_actions WHERE game_id = $1`, gameID).Scan(&actions))
	assert.Equal(t, 2, actions)

	require.NoError(t, RecordGameResults(ctx, gameID, []int{1, 3, 3}, []int{1, 2}))
	var status string
	var winners int
	require.NoError(t, DB.QueryRow(ctx, `SELECT status FROM games WHERE id = $1`, gameID).Scan(&status))
	require.NoError(t, DB.QueryRow(ctx, `SELECT COUNT(*) FROM game_results WHERE game_id = $1 AND did_win`, gameID).Scan(&winners))
	assert.Equal(t, "completed", status)
	assert.Equal(t, 2, winners)
}
