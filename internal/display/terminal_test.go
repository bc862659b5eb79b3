package display

import (
	"context"
	"testing"
	"time"

	"github.com/jason-s-yu/setdealer/internal/cards"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	pterm.DisableColor()
}

func TestTerminalTracksTable(t *testing.T) {
	term := NewTerminal(cards.StandardRules(), 12, 2, 1, []string{"q", "w"})

	term.PlaceCard(0, 0)
	term.PlaceToken(1, 0)
	term.SetScore(1, 4)
	term.SetCountdown(42*time.Second, false)

	out := term.Render()
	assert.Contains(t, out, "[q]")
	assert.Contains(t, out, DescribeCard(cards.StandardRules(), 0))
	assert.Contains(t, out, "P2")
	assert.Contains(t, out, "Reshuffle in 42s")
	assert.Contains(t, out, "(empty)")

	term.RemoveTokens(0)
	term.RemoveCard(0)
	term.mu.Lock()
	assert.Equal(t, -1, term.slots[0])
	assert.False(t, term.tokens[0][1])
	term.mu.Unlock()
}

func TestTerminalIgnoresOutOfRange(t *testing.T) {
	term := NewTerminal(cards.StandardRules(), 3, 1, -1, nil)
	assert.NotPanics(t, func() {
		term.PlaceCard(1, 7)
		term.PlaceToken(3, 0)
		term.SetScore(-1, 1)
		term.SetFreeze(9, time.Second)
	})
}

func TestTerminalAnnouncesWinners(t *testing.T) {
	term := NewTerminal(cards.StandardRules(), 12, 3, 1, nil)
	term.AnnounceWinner([]int{0, 2})
	assert.Contains(t, term.Render(), "Tie between Player 1, Player 3")

	term.AnnounceWinner([]int{1})
	assert.Contains(t, term.Render(), "Player 2 wins!")
}

func TestTerminalWarningCountdown(t *testing.T) {
	term := NewTerminal(cards.StandardRules(), 12, 1, 1, nil)
	term.SetCountdown(2500*time.Millisecond, true)
	assert.Contains(t, term.Render(), "Reshuffle in 2.50s")

	elapsed := NewTerminal(cards.StandardRules(), 12, 1, 0, nil)
	elapsed.SetElapsed(7 * time.Second)
	assert.Contains(t, elapsed.Render(), "Elapsed 7s")
}

func TestDescribeCard(t *testing.T) {
	// number 3, color 0, shading striped, shape 1
	assert.Equal(t, "●●● striped", DescribeCard(cards.StandardRules(), 2+0*3+1*9+1*27))
	assert.Equal(t, "012", DescribeCard(cards.Rules{FeatureSize: 3, FeatureCount: 3}, 21))
}

func TestTerminalRunStops(t *testing.T) {
	term := NewTerminal(cards.StandardRules(), 12, 1, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- term.Run(ctx) }()

	term.PlaceCard(5, 5)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("render loop did not stop")
	}
}
