// internal/handlers/spectate_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/setdealer/internal/game"
	"github.com/jason-s-yu/setdealer/internal/middleware"
)

// lookupGame resolves the game named by the path suffix after prefix, or the only hosted
// game when the suffix is empty.
func lookupGame(gs *GameServer, path, prefix string) (*game.Dealer, int, string) {
	idStr := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if idStr == "" {
		if d, ok := gs.GameStore.Current(); ok {
			return d, http.StatusOK, ""
		}
		return nil, http.StatusBadRequest, "Missing game_id in path"
	}
	gameID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, http.StatusBadRequest, "Invalid game_id format"
	}
	d, ok := gs.GameStore.GetGame(gameID)
	if !ok {
		return nil, http.StatusNotFound, "Game not found"
	}
	return d, http.StatusOK, ""
}

// SpectateWSHandler streams a game's events to a read-only websocket client:
// /spectate/ws/{game_id}, or /spectate/ws when a single game is hosted. The first message
// is a sync_state snapshot; every later message is one table change.
func SpectateWSHandler(gs *GameServer) http.HandlerFunc {
	logger := gs.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		d, status, msg := lookupGame(gs, r.URL.Path, "/spectate/ws")
		if d == nil {
			http.Error(w, msg, status)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"spectate"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", d.ID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "spectate" {
			c.Close(BadSubprotocolError, "Client must use the 'spectate' subprotocol.")
			return
		}

		s := newSpectator(c)
		count := gs.Hub.add(d.ID, s)
		defer gs.Hub.remove(d.ID, s)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path, count)

		state := d.CurrentState()
		gs.Hub.release(s, game.MarshalEvent(game.GameEvent{Type: game.EventSyncState, GameID: d.ID, State: &state}))

		// spectators never send; CloseRead discards input and ends ctx when the peer goes away
		ctx := c.CloseRead(r.Context())
		err = s.writeLoop(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// GameStateHandler serves the current snapshot of a game as JSON:
// GET /games/state/{game_id}, or /games/state when a single game is hosted.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		d, status, msg := lookupGame(gs, r.URL.Path, "/games/state")
		if d == nil {
			http.Error(w, msg, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(d.CurrentState()); err != nil {
			gs.Logger.Warnf("encoding state of game %s: %v", d.ID, err)
		}
	}
}
