// Package display draws a running game in the terminal with pterm.
package display

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/setdealer/internal/cards"
	"github.com/pterm/pterm"
)

// renderInterval caps how often the terminal is redrawn.
const renderInterval = 50 * time.Millisecond

// columns is the width of the card grid.
const columns = 4

// Terminal mirrors the table in memory and redraws it from its own goroutine, so UI calls
// made under the table lock only update fields.
type Terminal struct {
	rules   cards.Rules
	labels  []string // per-slot key hints, may be shorter than the table
	players int

	mu        sync.Mutex
	slots     []int
	tokens    [][]bool // [slot][player]
	countdown time.Duration
	warn      bool
	elapsed   time.Duration
	timerMode int // 1 countdown, 0 elapsed, -1 none
	scores    []int
	freezes   []time.Duration
	winners   []int
	over      bool

	dirty chan struct{}
}

// NewTerminal builds a display for a table of size slots. labels are the key hints shown
// on each slot.
func NewTerminal(rules cards.Rules, size, players int, timerMode int, labels []string) *Terminal {
	t := &Terminal{
		rules:     rules,
		labels:    labels,
		players:   players,
		slots:     make([]int, size),
		tokens:    make([][]bool, size),
		timerMode: timerMode,
		scores:    make([]int, players),
		freezes:   make([]time.Duration, players),
		dirty:     make(chan struct{}, 1),
	}
	for i := range t.slots {
		t.slots[i] = -1
		t.tokens[i] = make([]bool, players)
	}
	return t
}

func (t *Terminal) touch() {
	select {
	case t.dirty <- struct{}{}:
	default:
	}
}

func (t *Terminal) update(f func()) {
	t.mu.Lock()
	f()
	t.mu.Unlock()
	t.touch()
}

func (t *Terminal) validSlot(slot int) bool { return slot >= 0 && slot < len(t.slots) }
func (t *Terminal) validPlayer(p int) bool { return p >= 0 && p < t.players }

func (t *Terminal) PlaceCard(card, slot int) {
	t.update(func() {
		if t.validSlot(slot) {
			t.slots[slot] = card
		}
	})
}

func (t *Terminal) RemoveCard(slot int) {
	t.update(func() {
		if t.validSlot(slot) {
			t.slots[slot] = -1
		}
	})
}

func (t *Terminal) PlaceToken(player, slot int) {
	t.update(func() {
		if t.validSlot(slot) && t.validPlayer(player) {
			t.tokens[slot][player] = true
		}
	})
}

func (t *Terminal) RemoveToken(player, slot int) {
	t.update(func() {
		if t.validSlot(slot) && t.validPlayer(player) {
			t.tokens[slot][player] = false
		}
	})
}

func (t *Terminal) RemoveTokens(slot int) {
	t.update(func() {
		if t.validSlot(slot) {
			for p := range t.tokens[slot] {
				t.tokens[slot][p] = false
			}
		}
	})
}

func (t *Terminal) SetCountdown(remaining time.Duration, warn bool) {
	t.update(func() { t.countdown, t.warn = remaining, warn })
}

func (t *Terminal) SetElapsed(elapsed time.Duration) {
	t.update(func() { t.elapsed = elapsed })
}

func (t *Terminal) SetScore(player, score int) {
	t.update(func() {
		if t.validPlayer(player) {
			t.scores[player] = score
		}
	})
}

func (t *Terminal) SetFreeze(player int, remaining time.Duration) {
	t.update(func() {
		if t.validPlayer(player) {
			t.freezes[player] = max(remaining, 0)
		}
	})
}

func (t *Terminal) AnnounceWinner(players []int) {
	t.update(func() {
		t.winners = append([]int(nil), players...)
		t.over = true
	})
}

// Run redraws the area whenever the model changes, until ctx is done. The final frame
// stays on screen.
func (t *Terminal) Run(ctx context.Context) error {
	area, err := pterm.DefaultArea.WithCenter(false).Start(t.Render())
	if err != nil {
		return fmt.Errorf("start terminal area: %w", err)
	}
	defer area.Stop()

	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()
	pending := false
	for {
		select {
		case <-ctx.Done():
			area.Update(t.Render())
			return nil
		case <-t.dirty:
			pending = true
		case <-ticker.C:
			if pending {
				area.Update(t.Render())
				pending = false
			}
		}
	}
}

// Render draws the current model: the timer, the card grid and the scoreboard.
func (t *Terminal) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(t.renderTimer())
	sb.WriteString("\n")

	var grid [][]string
	for start := 0; start < len(t.slots); start += columns {
		var row []string
		for slot := start; slot < start+columns && slot < len(t.slots); slot++ {
			row = append(row, t.renderSlot(slot))
		}
		grid = append(grid, row)
	}
	table, err := pterm.DefaultTable.WithBoxed().WithRowSeparator("-").WithData(grid).Srender()
	if err != nil {
		table = err.Error()
	}
	sb.WriteString(table)
	sb.WriteString("\n")
	sb.WriteString(t.renderScores())
	return sb.String()
}

func (t *Terminal) renderTimer() string {
	if t.over {
		names := make([]string, len(t.winners))
		for i, w := range t.winners {
			names[i] = fmt.Sprintf("Player %d", w+1)
		}
		if len(names) == 1 {
			return pterm.LightGreen(fmt.Sprintf("%s wins!", names[0]))
		}
		return pterm.LightGreen(fmt.Sprintf("Tie between %s", strings.Join(names, ", ")))
	}
	switch {
	case t.timerMode > 0 && t.warn:
		return pterm.LightRed(fmt.Sprintf("Reshuffle in %.2fs", t.countdown.Seconds()))
	case t.timerMode > 0:
		return pterm.LightCyan(fmt.Sprintf("Reshuffle in %ds", int(t.countdown.Round(time.Second).Seconds())))
	case t.timerMode == 0:
		return pterm.LightCyan(fmt.Sprintf("Elapsed %ds", int(t.elapsed.Seconds())))
	default:
		return ""
	}
}

func (t *Terminal) renderSlot(slot int) string {
	label := ""
	if slot < len(t.labels) {
		label = pterm.Gray("[" + t.labels[slot] + "] ")
	}
	if t.slots[slot] < 0 {
		return label + pterm.Gray("(empty)")
	}
	var holders []string
	for p, has := range t.tokens[slot] {
		if has {
			holders = append(holders, tokenStyle(p).Sprintf("P%d", p+1))
		}
	}
	return label + DescribeCard(t.rules, t.slots[slot]) + " " + strings.Join(holders, " ")
}

func (t *Terminal) renderScores() string {
	rows := [][]string{{"Player", "Score", "Status"}}
	for p := 0; p < t.players; p++ {
		status := ""
		if t.freezes[p] > 0 {
			status = pterm.LightRed(fmt.Sprintf("frozen %ds", int(t.freezes[p].Round(time.Second).Seconds())))
		}
		if t.over && isWinner(t.winners, p) {
			status = pterm.LightGreen("winner")
		}
		rows = append(rows, []string{fmt.Sprintf("P%d", p+1), fmt.Sprint(t.scores[p]), status})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err.Error()
	}
	return out
}

func isWinner(winners []int, p int) bool {
	i := sort.SearchInts(winners, p)
	return i < len(winners) && winners[i] == p
}

func tokenStyle(p int) *pterm.Style {
	styles := []*pterm.Style{
		pterm.NewStyle(pterm.FgLightYellow),
		pterm.NewStyle(pterm.FgLightMagenta),
		pterm.NewStyle(pterm.FgLightBlue),
		pterm.NewStyle(pterm.FgLightGreen),
	}
	return styles[p%len(styles)]
}
