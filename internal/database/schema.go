package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the tables the archive and the historian write to.
const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          UUID PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'in_progress',
	start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ,
	final_state JSONB
);

CREATE TABLE IF NOT EXISTS game_results (
	game_id UUID NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	player  INT  NOT NULL,
	score   INT  NOT NULL,
	did_win BOOLEAN NOT NULL,
	PRIMARY KEY (game_id, player)
);

CREATE TABLE IF NOT EXISTS game_actions (
	game_id        UUID NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	action_index   INT  NOT NULL,
	actor          INT  NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// EnsureSchema creates any missing table.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
