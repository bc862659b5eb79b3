package input

import (
	"context"
	"math/rand"
	"time"
)

// Random presses a uniformly random slot every interval, with no strategy at all.
type Random struct {
	queue    *Queue
	slots    int
	interval time.Duration
	rng      *rand.Rand
}

// NewRandom builds a random presser over slots [0, slots).
func NewRandom(slots int, interval time.Duration, seed int64) *Random {
	return &Random{
		queue:    NewQueue(DefaultQueueSize),
		slots:    slots,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Keys starts pressing until ctx is done, then closes the channel.
func (r *Random) Keys(ctx context.Context) <-chan int {
	go r.run(ctx)
	return r.queue.Keys(ctx)
}

func (r *Random) run(ctx context.Context) {
	defer r.queue.Close()
	if r.slots < 1 {
		return
	}
	ticker := time.NewTicker(max(r.interval, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.queue.Press(r.rng.Intn(r.slots))
		}
	}
}
