// internal/game/game_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockUI records every call it receives.
type mockUI struct {
	NopUI

	mu         sync.Mutex
	placed     map[int]int // slot -> card currently shown
	tokens     map[[2]int]bool
	scores     map[int]int
	countdowns []time.Duration
	freezes    map[int][]time.Duration
	winners    []int
	announced  int
}

func newMockUI() *mockUI {
	return &mockUI{
		placed:  make(map[int]int),
		tokens:  make(map[[2]int]bool),
		scores:  make(map[int]int),
		freezes: make(map[int][]time.Duration),
	}
}

func (m *mockUI) PlaceCard(card, slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed[slot] = card
}

func (m *mockUI) RemoveCard(slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.placed, slot)
}

func (m *mockUI) PlaceToken(player, slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[[2]int{player, slot}] = true
}

func (m *mockUI) RemoveToken(player, slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, [2]int{player, slot})
}

func (m *mockUI) RemoveTokens(slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.tokens {
		if k[1] == slot {
			delete(m.tokens, k)
		}
	}
}

func (m *mockUI) SetCountdown(remaining time.Duration, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countdowns = append(m.countdowns, remaining)
}

func (m *mockUI) SetScore(player, score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[player] = score
}

func (m *mockUI) SetFreeze(player int, remaining time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freezes[player] = append(m.freezes[player], remaining)
}

func (m *mockUI) AnnounceWinner(players []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.winners = append([]int(nil), players...)
	m.announced++
}

func (m *mockUI) cardsShown() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.placed)
}

func (m *mockUI) tokensShown() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu        sync.Mutex
	allEvents []GameEvent
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) ofType(t GameEventType) []GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []GameEvent
	for _, ev := range mb.allEvents {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// testConfig returns a fast config: no table delay and no freezes.
func testConfig(players, deckSize, tableSize int) Config {
	cfg := DefaultConfig()
	cfg.Players = players
	cfg.DeckSize = deckSize
	cfg.TableSize = tableSize
	cfg.TableDelayMillis = 0
	cfg.PointFreezeMillis = 0
	cfg.PenaltyFreezeMillis = 0
	return cfg
}

func testLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestEventUIForwardsTableChanges(t *testing.T) {
	mb := &mockBroadcaster{}
	id := uuid.New()
	ui := NewEventUI(id, mb.broadcastFn)

	ui.PlaceCard(17, 4)
	ui.PlaceToken(1, 4)
	ui.RemoveTokens(4)
	ui.RemoveCard(4)
	ui.SetScore(1, 3)
	ui.AnnounceWinner([]int{1})

	placed := mb.ofType(EventCardPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, id, placed[0].GameID)
	assert.Equal(t, 17, *placed[0].Card)
	assert.Equal(t, 4, *placed[0].Slot)

	tokens := mb.ofType(EventTokenPlaced)
	require.Len(t, tokens, 1)
	assert.Equal(t, 1, *tokens[0].Player)

	assert.Len(t, mb.ofType(EventSlotCleared), 1)
	assert.Len(t, mb.ofType(EventCardRemoved), 1)

	scores := mb.ofType(EventPlayerScore)
	require.Len(t, scores, 1)
	assert.Equal(t, 3, *scores[0].Score)

	end := mb.ofType(EventGameEnd)
	require.Len(t, end, 1)
	assert.Equal(t, []int{1}, end[0].Winners)
}

func TestEventUIThrottlesCountdown(t *testing.T) {
	mb := &mockBroadcaster{}
	ui := NewEventUI(uuid.New(), mb.broadcastFn)

	ui.SetCountdown(10*time.Second, false)
	ui.SetCountdown(10*time.Second-100*time.Millisecond, false)
	assert.Len(t, mb.ofType(EventCountdown), 1, "same shown second must not be re-sent")

	ui.SetCountdown(9*time.Second, false)
	assert.Len(t, mb.ofType(EventCountdown), 2)

	ui.SetCountdown(9*time.Second, true)
	assert.Len(t, mb.ofType(EventCountdown), 3, "entering the warning zone is always sent")

	ui.SetFreeze(0, 3*time.Second)
	ui.SetFreeze(0, 3*time.Second-time.Millisecond)
	ui.SetFreeze(1, 3*time.Second)
	assert.Len(t, mb.ofType(EventPlayerFreeze), 2)
}

func TestEventUIWithoutBroadcast(t *testing.T) {
	ui := NewEventUI(uuid.New(), nil)
	assert.NotPanics(t, func() {
		ui.PlaceCard(1, 1)
		ui.AnnounceWinner(nil)
	})
}

func TestMultiUIFansOut(t *testing.T) {
	a, b := newMockUI(), newMockUI()
	ui := MultiUI{a, b}

	ui.PlaceCard(5, 0)
	ui.PlaceToken(0, 0)
	ui.SetScore(0, 2)

	for _, m := range []*mockUI{a, b} {
		assert.Equal(t, 1, m.cardsShown())
		assert.Equal(t, 1, m.tokensShown())
		assert.Equal(t, 2, m.scores[0])
	}
}

func TestWinners(t *testing.T) {
	assert.Equal(t, []int{1, 2}, Winners([]int{2, 3, 3, 1}))
	assert.Equal(t, []int{0}, Winners([]int{4}))
	assert.Equal(t, []int{0, 1, 2}, Winners([]int{0, 0, 0}))
	assert.Equal(t, []int{}, Winners(nil))
}

func TestMarshalEvent(t *testing.T) {
	slot := 2
	data := MarshalEvent(GameEvent{Type: EventCardRemoved, Slot: &slot})
	assert.Contains(t, string(data), `"type":"card_removed"`)
	assert.Contains(t, string(data), `"slot":2`)
}
