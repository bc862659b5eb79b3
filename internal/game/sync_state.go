// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
)

// SlotState is one table position as seen by a spectator.
type SlotState struct {
	Slot   int   `json:"slot"`
	Card   *int  `json:"card,omitempty"`   // nil when the slot is empty
	Tokens []int `json:"tokens,omitempty"` // players with a token on this slot
}

// PlayerState is the public state of one player.
type PlayerState struct {
	Player int    `json:"player"`
	Score  int    `json:"score"`
	State  string `json:"state"`
}

// TableState is a full snapshot of a running game, sent to spectators when they connect.
type TableState struct {
	GameID    uuid.UUID     `json:"game_id"`
	DeckSize  int           `json:"deckSize"`
	Discarded int           `json:"discarded"`
	GameOver  bool          `json:"gameOver"`
	Slots     []SlotState   `json:"slots"`
	Players   []PlayerState `json:"players"`
	Winners   []int         `json:"winners,omitempty"`
}

// slotStates copies the slot and token layout under the table lock.
func (t *Table) slotStates() []SlotState {
	t.mu.Lock()
	defer t.mu.Unlock()

	states := make([]SlotState, len(t.slotToCard))
	for slot, card := range t.slotToCard {
		st := SlotState{Slot: slot}
		if card != emptySlot {
			c := card
			st.Card = &c
		}
		for p := range t.tokens {
			if t.tokens[p][slot] {
				st.Tokens = append(st.Tokens, p)
			}
		}
		states[slot] = st
	}
	return states
}

// CurrentState generates a snapshot of the game. Safe to call from any goroutine.
func (d *Dealer) CurrentState() TableState {
	d.mu.Lock()
	state := TableState{
		GameID:    d.ID,
		DeckSize:  len(d.deck),
		Discarded: len(d.discard),
		GameOver:  d.gameOver,
		Winners:   append([]int(nil), d.winners...),
	}
	d.mu.Unlock()

	state.Slots = d.table.slotStates()
	for _, p := range d.players {
		state.Players = append(state.Players, PlayerState{
			Player: p.ID,
			Score:  p.Score(),
			State:  p.State().String(),
		})
	}
	return state
}
