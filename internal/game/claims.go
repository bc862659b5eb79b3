// internal/game/claims.go
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClaimQueueFull   = errors.New("claim queue is full")
	ErrClaimQueueClosed = errors.New("claim queue is closed")
)

// Verdict is the dealer's judgment of a claim.
type Verdict int

const (
	// VerdictInvalidNow means the claimed cards are no longer all on the table.
	VerdictInvalidNow Verdict = iota
	// VerdictPoint means the cards formed a set and were collected.
	VerdictPoint
	// VerdictPenalty means the cards were still on the table but formed no set.
	VerdictPenalty
)

func (v Verdict) String() string {
	switch v {
	case VerdictPoint:
		return "point"
	case VerdictPenalty:
		return "penalty"
	default:
		return "invalid_now"
	}
}

// Claim is a player's request to have the cards under its three tokens judged.
// It is created by the player, judged exactly once by the dealer, then discarded.
type Claim struct {
	ID          uuid.UUID
	Player      int
	Slots       [SetSize]int
	Cards       [SetSize]int // what the player saw on Slots when submitting
	SubmittedAt time.Time

	verdict chan Verdict
	once    sync.Once
}

// NewClaim builds a claim from a token snapshot. slots and cards must have SetSize entries.
func NewClaim(player int, slots, cards []int) *Claim {
	id, _ := uuid.NewRandom()
	c := &Claim{
		ID:          id,
		Player:      player,
		SubmittedAt: time.Now(),
		verdict:     make(chan Verdict, 1),
	}
	copy(c.Slots[:], slots)
	copy(c.Cards[:], cards)
	return c
}

// Resolve delivers v to the waiting player. Only the first call has an effect; it
// reports whether this call was the one that resolved the claim.
func (c *Claim) Resolve(v Verdict) bool {
	resolved := false
	c.once.Do(func() {
		c.verdict <- v
		resolved = true
	})
	return resolved
}

// Await blocks until the claim is resolved or ctx is done.
func (c *Claim) Await(ctx context.Context) (Verdict, error) {
	select {
	case v := <-c.verdict:
		return v, nil
	case <-ctx.Done():
		return VerdictInvalidNow, ctx.Err()
	}
}

// ClaimQueue is the bounded FIFO through which players hand claims to the dealer.
// Any number of goroutines may Submit; a single consumer drains it.
type ClaimQueue struct {
	mu       sync.Mutex
	pending  []*Claim
	capacity int
	closed   bool

	// ready holds at most one token; it is filled on every submission so the dealer
	// wakes from its sleep as soon as a claim arrives.
	ready chan struct{}
}

// NewClaimQueue creates a queue holding at most capacity unjudged claims.
func NewClaimQueue(capacity int) *ClaimQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ClaimQueue{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
}

// Submit appends c to the queue and wakes the consumer.
func (q *ClaimQueue) Submit(c *Claim) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClaimQueueClosed
	}
	if len(q.pending) >= q.capacity {
		return ErrClaimQueueFull
	}
	q.pending = append(q.pending, c)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Ready is signalled whenever claims were submitted since the last receive.
func (q *ClaimQueue) Ready() <-chan struct{} {
	return q.ready
}

// Drain removes and returns every pending claim in submission order.
func (q *ClaimQueue) Drain() []*Claim {
	q.mu.Lock()
	defer q.mu.Unlock()
	claims := q.pending
	q.pending = nil
	return claims
}

// Len returns the number of pending claims.
func (q *ClaimQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects further submissions and resolves any pending claim as VerdictInvalidNow,
// so no submitter is left waiting on a claim nobody will judge.
func (q *ClaimQueue) Close() {
	q.mu.Lock()
	q.closed = true
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, c := range pending {
		c.Resolve(VerdictInvalidNow)
	}
}
