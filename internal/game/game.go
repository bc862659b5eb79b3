// internal/game/game.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// UI receives everything a display needs to mirror the table. Calls are fire-and-forget:
// implementations must not block for long and must never call back into the Table,
// because most calls are made while the table lock is held.
type UI interface {
	PlaceCard(card, slot int)
	RemoveCard(slot int)
	PlaceToken(player, slot int)
	RemoveToken(player, slot int)
	RemoveTokens(slot int)
	SetCountdown(remaining time.Duration, warn bool)
	SetElapsed(elapsed time.Duration)
	SetScore(player, score int)
	SetFreeze(player int, remaining time.Duration)
	AnnounceWinner(players []int)
}

// NopUI discards every update.
type NopUI struct{}

func (NopUI) PlaceCard(int, int) {}
func (NopUI) RemoveCard(int) {}
func (NopUI) PlaceToken(int, int) {}
func (NopUI) RemoveToken(int, int) {}
func (NopUI) RemoveTokens(int) {}
func (NopUI) SetCountdown(time.Duration, bool) {}
func (NopUI) SetElapsed(time.Duration) {}
func (NopUI) SetScore(int, int) {}
func (NopUI) SetFreeze(int, time.Duration) {}
func (NopUI) AnnounceWinner([]int) {}

// MultiUI fans every update out to each UI in order.
type MultiUI []UI

func (m MultiUI) PlaceCard(card, slot int) {
	for _, ui := range m {
		ui.PlaceCard(card, slot)
	}
}

func (m MultiUI) RemoveCard(slot int) {
	for _, ui := range m {
		ui.RemoveCard(slot)
	}
}

func (m MultiUI) PlaceToken(player, slot int) {
	for _, ui := range m {
		ui.PlaceToken(player, slot)
	}
}

func (m MultiUI) RemoveToken(player, slot int) {
	for _, ui := range m {
		ui.RemoveToken(player, slot)
	}
}

func (m MultiUI) RemoveTokens(slot int) {
	for _, ui := range m {
		ui.RemoveTokens(slot)
	}
}

func (m MultiUI) SetCountdown(remaining time.Duration, warn bool) {
	for _, ui := range m {
		ui.SetCountdown(remaining, warn)
	}
}

func (m MultiUI) SetElapsed(elapsed time.Duration) {
	for _, ui := range m {
		ui.SetElapsed(elapsed)
	}
}

func (m MultiUI) SetScore(player, score int) {
	for _, ui := range m {
		ui.SetScore(player, score)
	}
}

func (m MultiUI) SetFreeze(player int, remaining time.Duration) {
	for _, ui := range m {
		ui.SetFreeze(player, remaining)
	}
}

func (m MultiUI) AnnounceWinner(players []int) {
	for _, ui := range m {
		ui.AnnounceWinner(players)
	}
}

// GameEventType is an enum-like type for broadcasting table changes.
type GameEventType string

const (
	EventCardPlaced   GameEventType = "card_placed"
	EventCardRemoved  GameEventType = "card_removed"
	EventTokenPlaced  GameEventType = "token_placed"
	EventTokenRemoved GameEventType = "token_removed"
	EventSlotCleared  GameEventType = "slot_tokens_cleared"
	EventCountdown    GameEventType = "countdown"
	EventElapsed      GameEventType = "elapsed"
	EventPlayerScore  GameEventType = "player_score"
	EventPlayerFreeze GameEventType = "player_freeze"
	EventGameEnd      GameEventType = "game_end"
	EventSyncState    GameEventType = "sync_state" // full snapshot sent to a new spectator
)

// GameEvent holds one table change in the format sent to spectators.
type GameEvent struct {
	Type    GameEventType `json:"type"`
	GameID  uuid.UUID     `json:"game_id"`
	Player  *int          `json:"player,omitempty"`
	Slot    *int          `json:"slot,omitempty"`
	Card    *int          `json:"card,omitempty"`
	Score   *int          `json:"score,omitempty"`
	Millis  *int64        `json:"millis,omitempty"`
	Warn    bool          `json:"warn,omitempty"`
	Winners []int         `json:"winners,omitempty"`
	State   *TableState   `json:"state,omitempty"`
}

// EventUI turns UI calls into GameEvents and hands them to BroadcastFn. Countdown and
// freeze updates are only forwarded when the shown second changes, so fast dealer ticks
// do not flood spectators.
type EventUI struct {
	GameID uuid.UUID

	// BroadcastFn is used to send events to all spectators. If nil, events are dropped.
	BroadcastFn func(ev GameEvent)

	mu         sync.Mutex
	lastSecond int64
	lastWarn   bool
	lastFreeze map[int]int64
}

// NewEventUI builds an EventUI for a game.
func NewEventUI(gameID uuid.UUID, broadcast func(ev GameEvent)) *EventUI {
	return &EventUI{
		GameID:      gameID,
		BroadcastFn: broadcast,
		lastSecond:  -1,
		lastFreeze:  make(map[int]int64),
	}
}

func (e *EventUI) fire(ev GameEvent) {
	if e.BroadcastFn == nil {
		return
	}
	ev.GameID = e.GameID
	e.BroadcastFn(ev)
}

func (e *EventUI) PlaceCard(card, slot int) {
	e.fire(GameEvent{Type: EventCardPlaced, Card: &card, Slot: &slot})
}

func (e *EventUI) RemoveCard(slot int) {
	e.fire(GameEvent{Type: EventCardRemoved, Slot: &slot})
}

func (e *EventUI) PlaceToken(player, slot int) {
	e.fire(GameEvent{Type: EventTokenPlaced, Player: &player, Slot: &slot})
}

func (e *EventUI) RemoveToken(player, slot int) {
	e.fire(GameEvent{Type: EventTokenRemoved, Player: &player, Slot: &slot})
}

func (e *EventUI) RemoveTokens(slot int) {
	e.fire(GameEvent{Type: EventSlotCleared, Slot: &slot})
}

func (e *EventUI) SetCountdown(remaining time.Duration, warn bool) {
	sec := int64(remaining.Round(time.Second) / time.Second)
	e.mu.Lock()
	if sec == e.lastSecond && warn == e.lastWarn {
		e.mu.Unlock()
		return
	}
	e.lastSecond, e.lastWarn = sec, warn
	e.mu.Unlock()

	ms := remaining.Milliseconds()
	e.fire(GameEvent{Type: EventCountdown, Millis: &ms, Warn: warn})
}

func (e *EventUI) SetElapsed(elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	e.fire(GameEvent{Type: EventElapsed, Millis: &ms})
}

func (e *EventUI) SetScore(player, score int) {
	e.fire(GameEvent{Type: EventPlayerScore, Player: &player, Score: &score})
}

func (e *EventUI) SetFreeze(player int, remaining time.Duration) {
	sec := int64(remaining.Round(time.Second) / time.Second)
	e.mu.Lock()
	if last, ok := e.lastFreeze[player]; ok && last == sec {
		e.mu.Unlock()
		return
	}
	e.lastFreeze[player] = sec
	e.mu.Unlock()

	ms := remaining.Milliseconds()
	e.fire(GameEvent{Type: EventPlayerFreeze, Player: &player, Millis: &ms})
}

func (e *EventUI) AnnounceWinner(players []int) {
	winners := append([]int(nil), players...)
	e.fire(GameEvent{Type: EventGameEnd, Winners: winners})
}
