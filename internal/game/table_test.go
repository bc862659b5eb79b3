package game

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(players, size int) (*Table, *mockUI) {
	ui := newMockUI()
	return NewTable(players, size, ui, testLogger()), ui
}

func TestTablePlaceAndRemoveCard(t *testing.T) {
	tbl, ui := newTestTable(2, 12)

	require.NoError(t, tbl.PlaceCard(40, 3))
	assert.Equal(t, 1, tbl.CountCards())
	card, ok := tbl.CardAt(3)
	assert.True(t, ok)
	assert.Equal(t, 40, card)
	slot, ok := tbl.SlotOf(40)
	assert.True(t, ok)
	assert.Equal(t, 3, slot)
	assert.Equal(t, 1, ui.cardsShown())

	assert.ErrorIs(t, tbl.PlaceCard(41, 3), ErrSlotOccupied)
	assert.ErrorIs(t, tbl.PlaceCard(40, 4), ErrCardOnTable)
	assert.ErrorIs(t, tbl.PlaceCard(41, 12), ErrSlotOutOfRange)

	removed, err := tbl.RemoveCard(3)
	require.NoError(t, err)
	assert.Equal(t, 40, removed)
	assert.Equal(t, 0, tbl.CountCards())
	_, ok = tbl.SlotOf(40)
	assert.False(t, ok)
	assert.Equal(t, 0, ui.cardsShown())

	_, err = tbl.RemoveCard(3)
	assert.ErrorIs(t, err, ErrSlotEmpty)
}

func TestTableTokenLimits(t *testing.T) {
	tbl, _ := newTestTable(2, 12)
	for slot := 0; slot < 5; slot++ {
		require.NoError(t, tbl.PlaceCard(slot, slot))
	}

	_, err := tbl.PlaceToken(0, 7)
	assert.ErrorIs(t, err, ErrSlotEmpty, "tokens only go on cards")

	for slot := 0; slot < SetSize; slot++ {
		n, err := tbl.PlaceToken(0, slot)
		require.NoError(t, err)
		assert.Equal(t, slot+1, n)
	}
	_, err = tbl.PlaceToken(0, 3)
	assert.ErrorIs(t, err, ErrTokenLimit)
	_, err = tbl.PlaceToken(0, 0)
	assert.ErrorIs(t, err, ErrTokenExists)

	// tokens of different players are independent
	n, err := tbl.PlaceToken(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = tbl.RemoveToken(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = tbl.RemoveToken(0, 1)
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = tbl.PlaceToken(5, 0)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestTableToggleToken(t *testing.T) {
	tbl, _ := newTestTable(1, 12)
	require.NoError(t, tbl.PlaceCard(9, 2))

	placed, count, err := tbl.ToggleToken(0, 2)
	require.NoError(t, err)
	assert.True(t, placed)
	assert.Equal(t, 1, count)

	placed, count, err = tbl.ToggleToken(0, 2)
	require.NoError(t, err)
	assert.False(t, placed)
	assert.Equal(t, 0, count)

	_, _, err = tbl.ToggleToken(0, 5)
	assert.ErrorIs(t, err, ErrSlotEmpty)
}

func TestTableRemoveCardClearsAllTokensOnSlot(t *testing.T) {
	tbl, ui := newTestTable(3, 12)
	require.NoError(t, tbl.PlaceCard(1, 0))
	require.NoError(t, tbl.PlaceCard(2, 1))
	for p := 0; p < 3; p++ {
		_, err := tbl.PlaceToken(p, 0)
		require.NoError(t, err)
	}
	_, err := tbl.PlaceToken(0, 1)
	require.NoError(t, err)

	_, err = tbl.RemoveCard(0)
	require.NoError(t, err)

	for p := 0; p < 3; p++ {
		assert.False(t, tbl.HasToken(p, 0))
	}
	assert.Equal(t, 1, tbl.TokenCount(0))
	assert.Equal(t, 0, tbl.TokenCount(1))
	assert.Equal(t, 1, tbl.TotalTokens())
	assert.Equal(t, 1, ui.tokensShown())
}

func TestTableSnapshotTokens(t *testing.T) {
	tbl, _ := newTestTable(1, 12)
	for slot, card := range []int{10, 20, 30, 40} {
		require.NoError(t, tbl.PlaceCard(card, slot))
	}
	for _, slot := range []int{3, 0, 2} {
		_, err := tbl.PlaceToken(0, slot)
		require.NoError(t, err)
	}

	slots, cards := tbl.SnapshotTokens(0)
	assert.Equal(t, []int{0, 2, 3}, slots)
	assert.Equal(t, []int{10, 30, 40}, cards)

	got, ok := tbl.CardsAt([]int{0, 2, 3})
	assert.True(t, ok)
	assert.Equal(t, cards, got)
	_, ok = tbl.CardsAt([]int{0, 5})
	assert.False(t, ok)
}

func TestTableSlotListings(t *testing.T) {
	tbl, _ := newTestTable(1, 4)
	require.NoError(t, tbl.PlaceCard(7, 3))
	require.NoError(t, tbl.PlaceCard(5, 1))

	assert.Equal(t, []int{1, 3}, tbl.OccupiedSlots())
	assert.Equal(t, []int{0, 2}, tbl.EmptySlots())
	assert.Equal(t, []int{5, 7}, tbl.Cards())
}

func TestTableClearTokens(t *testing.T) {
	tbl, ui := newTestTable(2, 12)
	for slot := 0; slot < 4; slot++ {
		require.NoError(t, tbl.PlaceCard(slot, slot))
	}
	for p := 0; p < 2; p++ {
		for slot := p; slot < p+SetSize; slot++ {
			_, err := tbl.PlaceToken(p, slot)
			require.NoError(t, err)
		}
	}

	tbl.ClearTokens()
	assert.Equal(t, 0, tbl.TotalTokens())
	assert.Equal(t, 0, ui.tokensShown())
	assert.Equal(t, 4, tbl.CountCards(), "clearing tokens keeps the cards")
}

func TestTableConcurrentTogglesKeepCountsConsistent(t *testing.T) {
	const players = 4
	tbl, _ := newTestTable(players, 12)
	for slot := 0; slot < 12; slot++ {
		require.NoError(t, tbl.PlaceCard(slot, slot))
	}

	var wg sync.WaitGroup
	for p := 0; p < players; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				tbl.ToggleToken(p, (i*7+p)%12)
			}
		}(p)
	}
	wg.Wait()

	for p := 0; p < players; p++ {
		count := 0
		for slot := 0; slot < 12; slot++ {
			if tbl.HasToken(p, slot) {
				count++
			}
		}
		assert.Equal(t, count, tbl.TokenCount(p))
		assert.LessOrEqual(t, count, SetSize)
	}
}
