// internal/handlers/game_server.go
package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/setdealer/internal/database"
	"github.com/jason-s-yu/setdealer/internal/game"
	"github.com/sirupsen/logrus"
)

// GameServer holds the hosted games and the spectators watching them.
type GameServer struct {
	GameStore *game.GameStore
	Hub       *SpectatorHub
	Logger    *logrus.Entry

	// Retention is how long a finished game stays watchable before it is evicted.
	Retention time.Duration
}

// DefaultRetention keeps a finished game around long enough to read its final state.
const DefaultRetention = 5 * time.Minute

func NewGameServer(logger *logrus.Entry) *GameServer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &GameServer{
		GameStore: game.NewGameStore(),
		Hub:       NewSpectatorHub(logger.WithField("component", "spectators")),
		Logger:    logger,
		Retention: DefaultRetention,
	}
}

// NewGame builds a dealer whose updates go to ui and to the game's spectators, stores it,
// and archives its result when it ends. The caller runs it.
func (gs *GameServer) NewGame(cfg game.Config, ui game.UI, inputs []game.InputSource, opts ...game.Option) (*game.Dealer, error) {
	id := uuid.New()
	events := game.NewEventUI(id, gs.Hub.Broadcast)

	var uis game.MultiUI
	if ui != nil {
		uis = append(uis, ui)
	}
	uis = append(uis, events)

	opts = append([]game.Option{game.WithGameID(id), game.WithLogger(gs.Logger)}, opts...)
	d, err := game.NewDealer(cfg, uis, inputs, opts...)
	if err != nil {
		return nil, err
	}
	d.OnGameEnd = func(gameID uuid.UUID, scores []int, winners []int) {
		gs.archiveResults(d, scores, winners)
	}
	gs.GameStore.AddGame(d)
	go gs.evictWhenDone(d)
	return d, nil
}

// evictWhenDone drops d from the store once it has been finished for Retention and
// disconnects its spectators.
func (gs *GameServer) evictWhenDone(d *game.Dealer) {
	<-d.Done()
	if gs.Retention > 0 {
		timer := time.NewTimer(gs.Retention)
		<-timer.C
	}
	gs.GameStore.DeleteGame(d.ID)
	gs.Hub.CloseGame(d.ID, InvalidGameIDError, "game is no longer hosted")
	gs.Logger.Debugf("Evicted finished game %s.", d.ID)
}

// archiveResults writes the final scores and table to the database, if one is connected.
func (gs *GameServer) archiveResults(d *game.Dealer, scores, winners []int) {
	if database.DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := database.RecordGameResults(ctx, d.ID, scores, winners); err != nil {
		gs.Logger.Errorf("archiving results of game %s: %v", d.ID, err)
		return
	}
	if err := database.StoreFinalGameState(ctx, d.ID, d.CurrentState()); err != nil {
		gs.Logger.Errorf("archiving final state of game %s: %v", d.ID, err)
	}
}
