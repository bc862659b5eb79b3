// internal/game/table.go
package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// SetSize is the number of cards (and therefore tokens) that make up a claim.
const SetSize = 3

var (
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrSlotOccupied   = errors.New("slot already holds a card")
	ErrSlotEmpty      = errors.New("slot holds no card")
	ErrCardOnTable    = errors.New("card is already on the table")
	ErrTokenLimit     = errors.New("player already has the maximum number of tokens")
	ErrTokenExists    = errors.New("player already has a token on this slot")
	ErrNoToken        = errors.New("player has no token on this slot")
	ErrUnknownPlayer  = errors.New("unknown player")
)

const emptySlot = -1

// Table holds the face-up cards and the players' tokens. Every read and write of slot or
// token state goes through mu, which is never held while waiting on anything else.
// Cards are placed and removed only by the dealer; tokens only by their owning player.
type Table struct {
	mu sync.Mutex

	slotToCard []int       // slot -> card, emptySlot when free
	cardToSlot map[int]int // card -> slot for cards on the table
	tokens     [][]bool    // [player][slot]
	tokenCount []int       // [player]

	ui  UI
	log *logrus.Entry
}

// NewTable builds an empty table of size slots for the given number of players.
func NewTable(players, size int, ui UI, logger *logrus.Entry) *Table {
	if ui == nil {
		ui = NopUI{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	t := &Table{
		slotToCard: make([]int, size),
		cardToSlot: make(map[int]int, size),
		tokens:     make([][]bool, players),
		tokenCount: make([]int, players),
		ui:         ui,
		log:        logger,
	}
	for i := range t.slotToCard {
		t.slotToCard[i] = emptySlot
	}
	for p := range t.tokens {
		t.tokens[p] = make([]bool, size)
	}
	return t
}

// Size is the number of slots on the table.
func (t *Table) Size() int {
	return len(t.slotToCard)
}

// checkSlot assumes lock is held.
func (t *Table) checkSlot(slot int) error {
	if slot < 0 || slot >= len(t.slotToCard) {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot)
	}
	return nil
}

// checkPlayer assumes lock is held.
func (t *Table) checkPlayer(player int) error {
	if player < 0 || player >= len(t.tokens) {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	return nil
}

// PlaceCard puts card on an empty slot. Dealer only.
func (t *Table) PlaceCard(card, slot int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkSlot(slot); err != nil {
		return err
	}
	if t.slotToCard[slot] != emptySlot {
		t.log.Warnf("PlaceCard: slot %d already holds card %d, not placing %d", slot, t.slotToCard[slot], card)
		return ErrSlotOccupied
	}
	if at, ok := t.cardToSlot[card]; ok {
		t.log.Warnf("PlaceCard: card %d is already on slot %d", card, at)
		return ErrCardOnTable
	}

	t.slotToCard[slot] = card
	t.cardToSlot[card] = slot
	t.ui.PlaceCard(card, slot)
	return nil
}

// RemoveCard clears slot and every token on it, returning the card that was there. Dealer only.
func (t *Table) RemoveCard(slot int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkSlot(slot); err != nil {
		return emptySlot, err
	}
	card := t.slotToCard[slot]
	if card == emptySlot {
		return emptySlot, ErrSlotEmpty
	}

	for p := range t.tokens {
		if t.tokens[p][slot] {
			t.tokens[p][slot] = false
			t.tokenCount[p]--
		}
	}
	t.ui.RemoveTokens(slot)

	t.slotToCard[slot] = emptySlot
	delete(t.cardToSlot, card)
	t.ui.RemoveCard(slot)
	return card, nil
}

// PlaceToken marks slot as part of player's claim and returns the player's token count.
func (t *Table) PlaceToken(player, slot int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.placeTokenUnsafe(player, slot)
}

// placeTokenUnsafe assumes lock is held.
func (t *Table) placeTokenUnsafe(player, slot int) (int, error) {
	if err := t.checkPlayer(player); err != nil {
		return 0, err
	}
	if err := t.checkSlot(slot); err != nil {
		return t.tokenCount[player], err
	}
	switch {
	case t.slotToCard[slot] == emptySlot:
		return t.tokenCount[player], ErrSlotEmpty
	case t.tokens[player][slot]:
		return t.tokenCount[player], ErrTokenExists
	case t.tokenCount[player] >= SetSize:
		return t.tokenCount[player], ErrTokenLimit
	}

	t.tokens[player][slot] = true
	t.tokenCount[player]++
	t.ui.PlaceToken(player, slot)
	return t.tokenCount[player], nil
}

// RemoveToken takes player's token off slot and returns the player's token count.
func (t *Table) RemoveToken(player, slot int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeTokenUnsafe(player, slot)
}

// removeTokenUnsafe assumes lock is held.
func (t *Table) removeTokenUnsafe(player, slot int) (int, error) {
	if err := t.checkPlayer(player); err != nil {
		return 0, err
	}
	if err := t.checkSlot(slot); err != nil {
		return t.tokenCount[player], err
	}
	if !t.tokens[player][slot] {
		return t.tokenCount[player], ErrNoToken
	}

	t.tokens[player][slot] = false
	t.tokenCount[player]--
	t.ui.RemoveToken(player, slot)
	return t.tokenCount[player], nil
}

// ToggleToken removes player's token from slot if there is one, otherwise places one.
// placed reports which of the two happened; count is the player's token count afterwards.
func (t *Table) ToggleToken(player, slot int) (placed bool, count int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkPlayer(player); err != nil {
		return false, 0, err
	}
	if err := t.checkSlot(slot); err != nil {
		return false, t.tokenCount[player], err
	}
	if t.tokens[player][slot] {
		count, err = t.removeTokenUnsafe(player, slot)
		return false, count, err
	}
	count, err = t.placeTokenUnsafe(player, slot)
	return err == nil, count, err
}

// SnapshotTokens returns, atomically, the slots player has tokens on (ascending) and the
// cards currently lying on them.
func (t *Table) SnapshotTokens(player int) (slots []int, cards []int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.checkPlayer(player) != nil {
		return nil, nil
	}
	for slot, has := range t.tokens[player] {
		if has {
			slots = append(slots, slot)
			cards = append(cards, t.slotToCard[slot])
		}
	}
	return slots, cards
}

// CardsAt returns the cards on the given slots; ok is false if any slot is empty or invalid.
func (t *Table) CardsAt(slots []int) (cards []int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cards = make([]int, len(slots))
	for i, slot := range slots {
		if t.checkSlot(slot) != nil || t.slotToCard[slot] == emptySlot {
			return nil, false
		}
		cards[i] = t.slotToCard[slot]
	}
	return cards, true
}

// CardAt returns the card on slot, if any.
func (t *Table) CardAt(slot int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkSlot(slot) != nil || t.slotToCard[slot] == emptySlot {
		return emptySlot, false
	}
	return t.slotToCard[slot], true
}

// SlotOf returns the slot holding card, if it is on the table.
func (t *Table) SlotOf(card int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot, ok := t.cardToSlot[card]
	return slot, ok
}

// CountCards returns the number of occupied slots.
func (t *Table) CountCards() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cardToSlot)
}

// Cards returns the cards on the table in slot order.
func (t *Table) Cards() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cards := make([]int, 0, len(t.cardToSlot))
	for _, card := range t.slotToCard {
		if card != emptySlot {
			cards = append(cards, card)
		}
	}
	return cards
}

// EmptySlots returns the free slots in ascending order.
func (t *Table) EmptySlots() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var slots []int
	for slot, card := range t.slotToCard {
		if card == emptySlot {
			slots = append(slots, slot)
		}
	}
	return slots
}

// OccupiedSlots returns the slots holding a card in ascending order.
func (t *Table) OccupiedSlots() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	slots := make([]int, 0, len(t.cardToSlot))
	for _, slot := range t.cardToSlot {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

func (t *Table) HasToken(player, slot int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkPlayer(player) != nil || t.checkSlot(slot) != nil {
		return false
	}
	return t.tokens[player][slot]
}

func (t *Table) TokenCount(player int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkPlayer(player) != nil {
		return 0
	}
	return t.tokenCount[player]
}

// TotalTokens returns the number of tokens on the table across all players.
func (t *Table) TotalTokens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, n := range t.tokenCount {
		total += n
	}
	return total
}

// ClearTokens takes every token off the table.
func (t *Table) ClearTokens() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for slot := range t.slotToCard {
		cleared := false
		for p := range t.tokens {
			if t.tokens[p][slot] {
				t.tokens[p][slot] = false
				t.tokenCount[p]--
				cleared = true
			}
		}
		if cleared {
			t.ui.RemoveTokens(slot)
		}
	}
}
