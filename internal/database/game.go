// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/setdealer/internal/cache"
)

// ErrNoDatabase is returned when an archive call is made without a connected pool.
var ErrNoDatabase = errors.New("database not connected")

// ActionGameEnd is the action type that closes a game's action log.
const ActionGameEnd = "game_end"

// RecordGameResults persists the final scores of a game and marks it completed.
// scores is indexed by player id.
func RecordGameResults(ctx context.Context, gameID uuid.UUID, scores []int, winners []int) error {
	if DB == nil {
		return ErrNoDatabase
	}
	won := make(map[int]bool, len(winners))
	for _, w := range winners {
		won[w] = true
	}

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, status, end_time)
			VALUES ($1, 'completed', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = NOW()
		`
		if _, e := tx.Exec(ctx, upsertGame, gameID); e != nil {
			return e
		}

		q := `
			INSERT INTO game_results (game_id, player, score, did_win)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (game_id, player)
			DO UPDATE SET score=$3, did_win=$4
		`
		for player, score := range scores {
			if _, e := tx.Exec(ctx, q, gameID, player, score, won[player]); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// StoreFinalGameState stores a JSON snapshot of the table at game end.
func StoreFinalGameState(ctx context.Context, gameID uuid.UUID, snapshot interface{}) error {
	if DB == nil {
		return ErrNoDatabase
	}
	js, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal final snapshot: %w", err)
	}
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, `UPDATE games SET final_state = $1 WHERE id = $2`, js, gameID)
		return e
	})
	if err != nil {
		return fmt.Errorf("storing final game state in DB: %w", err)
	}
	return nil
}

// InsertGameActions writes a batch of action records in one transaction.
func InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error {
	if DB == nil {
		return ErrNoDatabase
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertGameActionTx: %w", err)
			}
		}
		return nil
	})
}

// insertGameActionTx inserts one action, creating the game row on first sight. A
// game_end action also completes the game.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			game_id, action_index, actor, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, rec.Actor, rec.ActionType, jsonPayload, time.UnixMilli(rec.Timestamp),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == ActionGameEnd {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err = tx.Exec(ctx, finalizeQ, rec.GameID); err != nil {
			return err
		}
	}
	return nil
}

// MarkGameAbandoned marks a game as 'abandoned' if it is still 'in_progress'.
func MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error {
	if DB == nil {
		return ErrNoDatabase
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, gameID)
		return e
	})
}
