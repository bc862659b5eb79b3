// internal/game/dealer.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/setdealer/internal/cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrDealerStarted is returned when Run is called on a dealer that already ran.
var ErrDealerStarted = errors.New("dealer already started")

// warnTick is the dealer's tick once the countdown is below the warning threshold.
const warnTick = 10 * time.Millisecond

// SetUtil is the set arithmetic the dealer depends on.
type SetUtil interface {
	IsValidSet(a, b, c int) bool
	FindSets(cards []int, limit int) [][3]int
}

// OnGameEndFunc is invoked once the winners are known, e.g. to archive the result.
type OnGameEndFunc func(gameID uuid.UUID, scores []int, winners []int)

// Dealer owns the deck and the game's timeline. It is the only goroutine that places or
// removes cards, judges claims and changes scores.
type Dealer struct {
	ID uuid.UUID

	cfg     Config
	table   *Table
	players []*Player
	claims  *ClaimQueue
	util    SetUtil
	ui      UI
	log     *logrus.Entry
	rng     *rand.Rand

	// OnGameEnd is invoked at game end to archive results, etc.
	OnGameEnd OnGameEndFunc

	// timeline, touched only by the Run goroutine
	reshuffleAt time.Time
	lastDeal    time.Time
	actionIndex atomic.Int64

	mu       sync.Mutex // guards the fields below for readers outside Run
	deck     []int
	discard  []int
	gameOver bool
	winners  []int
	started  bool
	cancel   context.CancelFunc

	terminated atomic.Bool
	done       chan struct{}
}

// Option customizes a Dealer at construction.
type Option func(*Dealer)

// WithLogger sets the logger every component of the game logs through.
func WithLogger(logger *logrus.Entry) Option {
	return func(d *Dealer) { d.log = logger }
}

// WithSetUtil replaces the set arithmetic derived from Config.Rules.
func WithSetUtil(util SetUtil) Option {
	return func(d *Dealer) { d.util = util }
}

// WithSeed makes card draws and slot choices reproducible.
func WithSeed(seed int64) Option {
	return func(d *Dealer) { d.rng = rand.New(rand.NewSource(seed)) }
}

// WithGameID sets the game id instead of a random one.
func WithGameID(id uuid.UUID) Option {
	return func(d *Dealer) { d.ID = id }
}

// NewDealer builds a full game: the table, the claim queue and one player per input.
func NewDealer(cfg Config, ui UI, inputs []InputSource, opts ...Option) (*Dealer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(inputs) != cfg.Players {
		return nil, fmt.Errorf("%w: %d players need %d inputs, got %d", ErrInvalidConfig, cfg.Players, cfg.Players, len(inputs))
	}
	if ui == nil {
		ui = NopUI{}
	}

	id, _ := uuid.NewRandom()
	d := &Dealer{
		ID:   id,
		cfg:  cfg,
		util: cfg.Rules,
		ui:   ui,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logrus.NewEntry(logrus.StandardLogger())
	}
	d.log = d.log.WithField("game", d.ID)

	d.table = NewTable(cfg.Players, cfg.TableSize, ui, d.log)
	// a player never has more than one claim outstanding
	d.claims = NewClaimQueue(cfg.Players)
	for i, in := range inputs {
		d.players = append(d.players, newPlayer(i, cfg, d.table, d.claims, in, ui, d.log))
	}

	d.deck = make([]int, cfg.DeckSize)
	for i := range d.deck {
		d.deck[i] = i
	}
	d.shuffleDeck()
	return d, nil
}

func (d *Dealer) Table() *Table { return d.table }
func (d *Dealer) Players() []*Player { return d.players }
func (d *Dealer) Claims() *ClaimQueue { return d.claims }
func (d *Dealer) Config() Config { return d.cfg }
func (d *Dealer) Done() <-chan struct{} { return d.done }

// Scores returns every player's score, indexed by player id.
func (d *Dealer) Scores() []int {
	scores := make([]int, len(d.players))
	for i, p := range d.players {
		scores[i] = p.Score()
	}
	return scores
}

// Winners returns the announced winners, or nil while the game is running.
func (d *Dealer) Winners() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.winners...)
}

// DeckSize returns the number of undealt cards.
func (d *Dealer) DeckSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deck)
}

// Terminate asks a running (or not yet started) game to stop. Every blocked player and
// the dealer itself wake promptly; Run still announces the winners before returning.
func (d *Dealer) Terminate() {
	d.terminated.Store(true)
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run starts the players and drives the game until no set can be dealt anymore or the
// game is terminated. It returns once every player goroutine has exited.
func (d *Dealer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrDealerStarted
	}
	d.started = true
	d.cancel = cancel
	d.mu.Unlock()
	defer close(d.done)

	if d.terminated.Load() {
		cancel()
	}

	d.log.Infof("Dealer starting with %d players and %d cards.", len(d.players), d.cfg.DeckSize)
	d.logAction(cache.ActorDealer, "game_start", map[string]interface{}{"players": len(d.players), "deckSize": d.cfg.DeckSize})

	playersCtx, stopPlayers := context.WithCancel(ctx)
	defer stopPlayers()
	group, groupCtx := errgroup.WithContext(playersCtx)
	for _, p := range d.players {
		group.Go(func() error { return p.Run(groupCtx) })
	}

	for !d.shouldFinish(ctx) {
		d.placeCardsOnTable(ctx)
		d.updateTimerDisplay(true)
		d.timerLoop(ctx)
		d.removeAllCardsFromTable(ctx)
	}
	d.announceWinners()

	d.claims.Close()
	stopPlayers()
	err := group.Wait()
	d.log.Info("Dealer terminated.")
	return err
}

// shouldFinish is true once the game was terminated or the deck holds no set.
func (d *Dealer) shouldFinish(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return len(d.util.FindSets(d.deckSnapshot(), 1)) == 0
}

// timerLoop runs until the turn expires, the table needs a reshuffle, or the game is
// terminated.
func (d *Dealer) timerLoop(ctx context.Context) {
	for ctx.Err() == nil && !d.turnExpired() {
		d.sleepUntilWokenOrTimeout(ctx)
		d.updateTimerDisplay(false)
		d.judgeClaims()
		d.placeCardsOnTable(ctx)
		if d.tableStuck() {
			d.log.Debug("No set left on the table, reshuffling early.")
			return
		}
	}
}

func (d *Dealer) turnExpired() bool {
	return d.cfg.TurnTimeoutMillis > 0 && !time.Now().Before(d.reshuffleAt)
}

// tableStuck reports that waiting cannot produce another point: the table holds no set
// and either no countdown is running or the deck cannot bring new cards.
func (d *Dealer) tableStuck() bool {
	if len(d.util.FindSets(d.table.Cards(), 1)) > 0 {
		return false
	}
	return d.cfg.TurnTimeoutMillis <= 0 || d.DeckSize() == 0
}

// sleepUntilWokenOrTimeout blocks for one tick, or less if a claim arrives or ctx ends.
func (d *Dealer) sleepUntilWokenOrTimeout(ctx context.Context) {
	wait := d.tickInterval()
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-d.claims.Ready():
	case <-timer.C:
	}
}

func (d *Dealer) tickInterval() time.Duration {
	if d.cfg.TurnTimeoutMillis <= 0 {
		return time.Second
	}
	remaining := time.Until(d.reshuffleAt)
	tick := time.Second
	if remaining <= d.cfg.TurnTimeoutWarning() {
		tick = warnTick
	}
	return min(tick, remaining)
}

// updateTimerDisplay refreshes the countdown (or elapsed time); reset restarts it.
func (d *Dealer) updateTimerDisplay(reset bool) {
	now := time.Now()
	switch {
	case d.cfg.TurnTimeoutMillis > 0:
		if reset {
			d.reshuffleAt = now.Add(d.cfg.TurnTimeout())
		}
		remaining := max(d.reshuffleAt.Sub(now), 0)
		d.ui.SetCountdown(remaining, remaining <= d.cfg.TurnTimeoutWarning())
	case d.cfg.TurnTimeoutMillis == 0:
		if reset {
			d.lastDeal = now
		}
		d.ui.SetElapsed(now.Sub(d.lastDeal))
	}
}

// judgeClaims drains the claim queue and judges every claim in submission order. Once a
// claim earns a point or a penalty, later claims in the same pass that share one of its
// slots are invalid.
func (d *Dealer) judgeClaims() {
	judged := make(map[int]bool)
	for _, c := range d.claims.Drain() {
		v := VerdictInvalidNow
		if !overlaps(c, judged) {
			v = d.judge(c)
		}
		if v != VerdictInvalidNow {
			for _, slot := range c.Slots {
				judged[slot] = true
			}
		}
		c.Resolve(v)
		d.logAction(c.Player, "claim_"+v.String(), map[string]interface{}{
			"claimId": c.ID,
			"slots":   c.Slots,
			"cards":   c.Cards,
		})
	}
}

// judge re-validates c against the live table and commits a point.
func (d *Dealer) judge(c *Claim) Verdict {
	if c.Player < 0 || c.Player >= len(d.players) {
		d.log.Warnf("Claim %s from unknown player %d.", c.ID, c.Player)
		return VerdictInvalidNow
	}
	current, ok := d.table.CardsAt(c.Slots[:])
	if !ok || !sameCards(current, c.Cards[:]) {
		return VerdictInvalidNow
	}
	if !d.util.IsValidSet(current[0], current[1], current[2]) {
		d.log.WithFields(logrus.Fields{"player": c.Player, "cards": current}).Debug("Penalty: not a set.")
		return VerdictPenalty
	}

	for _, slot := range c.Slots {
		card, err := d.table.RemoveCard(slot)
		if err != nil {
			d.log.Errorf("Removing collected slot %d: %v", slot, err)
			continue
		}
		d.discardCard(card)
	}
	score := d.players[c.Player].awardPoint()
	d.ui.SetScore(c.Player, score)
	d.log.WithFields(logrus.Fields{"player": c.Player, "cards": current, "score": score}).Info("Set collected.")
	d.updateTimerDisplay(true)
	return VerdictPoint
}

func overlaps(c *Claim, slots map[int]bool) bool {
	for _, slot := range c.Slots {
		if slots[slot] {
			return true
		}
	}
	return false
}

func sameCards(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// placeCardsOnTable fills the empty slots, in random order, from the deck.
func (d *Dealer) placeCardsOnTable(ctx context.Context) {
	empty := d.table.EmptySlots()
	d.rng.Shuffle(len(empty), func(i, j int) { empty[i], empty[j] = empty[j], empty[i] })

	placed := 0
	for _, slot := range empty {
		if ctx.Err() != nil {
			break
		}
		card, ok := d.drawCard()
		if !ok {
			break
		}
		if err := d.table.PlaceCard(card, slot); err != nil {
			d.log.Warnf("Could not place card %d on slot %d: %v", card, slot, err)
			d.returnCard(card)
			continue
		}
		placed++
		d.logAction(cache.ActorDealer, "card_placed", map[string]interface{}{"card": card, "slot": slot})
		d.pause(ctx, d.cfg.TableDelay())
	}
	if placed == 0 {
		return
	}
	if d.cfg.TurnTimeoutMillis == 0 {
		d.updateTimerDisplay(true)
	}
	if d.cfg.Hints {
		d.logHints()
	}
}

// removeAllCardsFromTable discards every card on the table and reshuffles the deck.
func (d *Dealer) removeAllCardsFromTable(ctx context.Context) {
	slots := d.table.OccupiedSlots()
	d.rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	for _, slot := range slots {
		card, err := d.table.RemoveCard(slot)
		if err != nil {
			continue
		}
		d.discardCard(card)
		d.pause(ctx, d.cfg.TableDelay())
	}
	d.table.ClearTokens()
	d.shuffleDeck()

	if d.cfg.TurnTimeoutMillis > 0 {
		d.ui.SetCountdown(d.cfg.TurnTimeout(), false)
	}
	d.logAction(cache.ActorDealer, "reshuffle", map[string]interface{}{"removed": len(slots), "deckSize": d.DeckSize()})
}

// announceWinners computes the winners and delivers them to the UI and OnGameEnd.
func (d *Dealer) announceWinners() {
	scores := d.Scores()
	winners := Winners(scores)

	d.mu.Lock()
	d.gameOver = true
	d.winners = winners
	d.mu.Unlock()

	d.ui.AnnounceWinner(winners)
	d.logAction(cache.ActorDealer, "game_end", map[string]interface{}{"scores": scores, "winners": winners})
	d.log.WithFields(logrus.Fields{"scores": scores, "winners": winners}).Info("Game over.")

	if d.OnGameEnd != nil {
		d.OnGameEnd(d.ID, scores, winners)
	}
}

// Winners returns, in ascending order, every player whose score equals the highest score.
func Winners(scores []int) []int {
	if len(scores) == 0 {
		return []int{}
	}
	best := scores[0]
	for _, s := range scores[1:] {
		best = max(best, s)
	}
	winners := []int{}
	for p, s := range scores {
		if s == best {
			winners = append(winners, p)
		}
	}
	return winners
}

func (d *Dealer) logHints() {
	sets := d.util.FindSets(d.table.Cards(), 0)
	for _, set := range sets {
		slots := make([]int, 0, len(set))
		for _, card := range set {
			if slot, ok := d.table.SlotOf(card); ok {
				slots = append(slots, slot)
			}
		}
		d.log.WithFields(logrus.Fields{"cards": set, "slots": slots}).Info("Hint: set on the table.")
	}
	if len(sets) == 0 {
		d.log.Info("Hint: no set on the table.")
	}
}

// pause sleeps for delay unless ctx ends first.
func (d *Dealer) pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Dealer) shuffleDeck() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rng.Shuffle(len(d.deck), func(i, j int) { d.deck[i], d.deck[j] = d.deck[j], d.deck[i] })
}

// drawCard pops the top card of the (shuffled) deck.
func (d *Dealer) drawCard() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.deck) == 0 {
		return 0, false
	}
	card := d.deck[len(d.deck)-1]
	d.deck = d.deck[:len(d.deck)-1]
	return card, true
}

func (d *Dealer) returnCard(card int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deck = append(d.deck, card)
}

func (d *Dealer) discardCard(card int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.discard = append(d.discard, card)
}

func (d *Dealer) deckSnapshot() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.deck...)
}

// logAction sends the action details to the historian via Redis.
func (d *Dealer) logAction(actor int, actionType string, payload map[string]interface{}) {
	if cache.Rdb == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        d.ID,
		ActionIndex:   int(d.actionIndex.Add(1)),
		Actor:         actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			d.log.Warnf("Error publishing game action %d: %v", rec.ActionIndex, err)
		}
	}(record)
}
