package input

import (
	"context"
	"testing"
	"time"

	"atomicgo.dev/keyboard/keys"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Press(1))
	assert.True(t, q.Press(2))
	assert.False(t, q.Press(3), "a full queue drops the press")
	assert.Equal(t, 2, q.Len())

	keys := q.Keys(context.Background())
	assert.Equal(t, 1, <-keys)
	assert.Equal(t, 2, <-keys)
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(DefaultQueueSize)
	require.True(t, q.Press(4))
	q.Close()
	q.Close()
	assert.False(t, q.Press(5))

	keys := q.Keys(context.Background())
	slot, ok := <-keys
	assert.True(t, ok, "buffered presses survive Close")
	assert.Equal(t, 4, slot)
	_, ok = <-keys
	assert.False(t, ok)
}

func TestRandomPressesWithinTable(t *testing.T) {
	r := NewRandom(12, time.Millisecond, 42)
	ctx, cancel := context.WithCancel(context.Background())
	keys := r.Keys(ctx)

	for i := 0; i < 20; i++ {
		select {
		case slot := <-keys:
			assert.GreaterOrEqual(t, slot, 0)
			assert.Less(t, slot, 12)
		case <-time.After(time.Second):
			t.Fatal("random source stalled")
		}
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-keys:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func testKeyboard(humans int) *Keyboard {
	logger, _ := test.NewNullLogger()
	return NewKeyboard(humans, logrus.NewEntry(logger))
}

func TestKeyboardRoutesLayouts(t *testing.T) {
	kb := testKeyboard(2)

	kb.HandleRune('q') // player 0, slot 0
	kb.HandleRune('v') // player 0, slot 11
	kb.HandleRune('l') // player 1, slot 6
	kb.HandleRune('?') // unbound

	p0 := kb.Source(0).Keys(context.Background())
	assert.Equal(t, 0, <-p0)
	assert.Equal(t, 11, <-p0)
	assert.Equal(t, 6, <-kb.Source(1).Keys(context.Background()))
	assert.Nil(t, kb.Source(2))
}

func TestKeyboardHandle(t *testing.T) {
	kb := testKeyboard(1)
	interrupted := false
	kb.OnInterrupt = func() { interrupted = true }

	stop := kb.Handle(keys.Key{Code: keys.RuneKey, Runes: []rune{'w'}})
	assert.False(t, stop)
	assert.Equal(t, 1, kb.Source(0).Len())

	// player 1 has no layout when only one human plays
	kb.Handle(keys.Key{Code: keys.RuneKey, Runes: []rune{'u'}})
	assert.Equal(t, 1, kb.Source(0).Len())

	assert.True(t, kb.Handle(keys.Key{Code: keys.CtrlC}))
	assert.True(t, interrupted)
}

func TestLayoutsCoverClassicTable(t *testing.T) {
	seen := make(map[rune]bool)
	for _, layout := range Layouts {
		assert.Len(t, []rune(layout), 12)
		for _, r := range layout {
			assert.False(t, seen[r], "key %q bound twice", r)
			seen[r] = true
		}
	}
}
