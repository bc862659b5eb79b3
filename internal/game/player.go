// internal/game/player.go
package game

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// InputSource produces the slot indices a player presses. Keys is called once, when the
// player starts; the channel may be closed when the source runs dry.
type InputSource interface {
	Keys(ctx context.Context) <-chan int
}

// PlayerStatus is where a player is in its claim cycle.
type PlayerStatus int32

const (
	PlayerIdle PlayerStatus = iota
	PlayerAwaitingVerdict
	PlayerFrozen
	PlayerStopped
)

func (s PlayerStatus) String() string {
	switch s {
	case PlayerIdle:
		return "idle"
	case PlayerAwaitingVerdict:
		return "awaiting_verdict"
	case PlayerFrozen:
		return "frozen"
	default:
		return "stopped"
	}
}

// freezeTick is how often a frozen player refreshes its freeze display.
const freezeTick = time.Second

// Player toggles tokens from its input and submits a claim whenever it holds three.
// It never touches cards; after a claim it blocks until the dealer has judged it.
type Player struct {
	ID int

	table  *Table
	claims *ClaimQueue
	input  InputSource
	ui     UI
	log    *logrus.Entry

	pointFreeze   time.Duration
	penaltyFreeze time.Duration

	score  atomic.Int64 // written by the dealer only
	status atomic.Int32

	// onVerdict, if set, observes every verdict this player receives (used by tests).
	onVerdict func(c *Claim, v Verdict)
}

func newPlayer(id int, cfg Config, table *Table, claims *ClaimQueue, input InputSource, ui UI, logger *logrus.Entry) *Player {
	return &Player{
		ID:            id,
		table:         table,
		claims:        claims,
		input:         input,
		ui:            ui,
		log:           logger.WithField("player", id),
		pointFreeze:   cfg.PointFreeze(),
		penaltyFreeze: cfg.PenaltyFreeze(),
	}
}

// Score returns the player's current score. Safe from any goroutine.
func (p *Player) Score() int {
	return int(p.score.Load())
}

// State returns what the player is currently doing.
func (p *Player) State() PlayerStatus {
	return PlayerStatus(p.status.Load())
}

func (p *Player) setState(s PlayerStatus) {
	p.status.Store(int32(s))
}

// awardPoint is called by the dealer when a claim earns a point.
func (p *Player) awardPoint() int {
	return int(p.score.Add(1))
}

// Run is the player's main loop. It returns when ctx is done.
func (p *Player) Run(ctx context.Context) error {
	p.log.Debug("player starting")
	defer func() {
		p.setState(PlayerStopped)
		p.log.Debug("player stopped")
	}()

	keys := p.input.Keys(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case slot, ok := <-keys:
			if !ok {
				// input ran dry; stay seated until the game ends
				keys = nil
				continue
			}
			if err := p.handleKey(ctx, slot, keys); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
		}
	}
}

// handleKey toggles a token and, on the third one, runs a full claim cycle.
func (p *Player) handleKey(ctx context.Context, slot int, keys <-chan int) error {
	placed, count, err := p.table.ToggleToken(p.ID, slot)
	if err != nil {
		// benign: the display can lag behind the table
		p.log.Debugf("key for slot %d ignored: %v", slot, err)
		return nil
	}
	if !placed || count < SetSize {
		return nil
	}

	slots, cards := p.table.SnapshotTokens(p.ID)
	if len(slots) < SetSize {
		// the dealer swept one of our cards between the toggle and the snapshot
		return nil
	}

	claim := NewClaim(p.ID, slots, cards)
	if err := p.claims.Submit(claim); err != nil {
		if errors.Is(err, ErrClaimQueueClosed) {
			return nil
		}
		p.log.Warnf("could not submit claim on slots %v: %v", slots, err)
		return nil
	}

	p.setState(PlayerAwaitingVerdict)
	verdict, err := claim.Await(ctx)
	if err != nil {
		return err
	}
	p.setState(PlayerIdle)
	p.log.WithFields(logrus.Fields{"slots": slots, "verdict": verdict.String()}).Debug("claim judged")
	if p.onVerdict != nil {
		p.onVerdict(claim, verdict)
	}

	switch verdict {
	case VerdictPoint:
		return p.freeze(ctx, p.pointFreeze, keys)
	case VerdictPenalty:
		return p.freeze(ctx, p.penaltyFreeze, keys)
	default:
		return nil
	}
}

// freeze blocks for d, discarding any key pressed meanwhile.
func (p *Player) freeze(ctx context.Context, d time.Duration, keys <-chan int) error {
	if d <= 0 {
		return nil
	}
	p.setState(PlayerFrozen)
	defer p.setState(PlayerIdle)

	deadline := time.Now().Add(d)
	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(freezeTick)
	defer ticker.Stop()

	p.ui.SetFreeze(p.ID, d)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			p.ui.SetFreeze(p.ID, 0)
			return nil
		case <-ticker.C:
			p.ui.SetFreeze(p.ID, time.Until(deadline))
		case _, ok := <-keys:
			if !ok {
				keys = nil
			}
		}
	}
}
