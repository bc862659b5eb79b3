package input

import (
	"context"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/sirupsen/logrus"
)

// Layouts are the keys of the human seats, in slot order: a 3x4 block on each half of
// the keyboard.
var Layouts = []string{
	"qwerasdfzxcv",
	"uiopjkl;m,./",
}

// Keyboard routes terminal key presses to the queues of the human players.
type Keyboard struct {
	bindings map[rune]binding
	queues   []*Queue

	// OnInterrupt is called on Ctrl+C or Escape, which also stop the listener.
	OnInterrupt func()

	log *logrus.Entry
}

type binding struct {
	player int
	slot   int
}

// NewKeyboard binds Layouts[i] to human player i, for up to len(Layouts) players.
func NewKeyboard(humans int, logger *logrus.Entry) *Keyboard {
	k := &Keyboard{
		bindings: make(map[rune]binding),
		log:      logger,
	}
	for p := 0; p < humans && p < len(Layouts); p++ {
		k.queues = append(k.queues, NewQueue(DefaultQueueSize))
		for slot, r := range Layouts[p] {
			k.bindings[r] = binding{player: p, slot: slot}
		}
	}
	if humans > len(Layouts) {
		logger.Warnf("Only %d keyboard layouts; %d human players have no keys.", len(Layouts), humans-len(Layouts))
	}
	return k
}

// Source returns the input of human player p, or nil if it has no layout.
func (k *Keyboard) Source(p int) *Queue {
	if p < 0 || p >= len(k.queues) {
		return nil
	}
	return k.queues[p]
}

// Handle routes one key press. It reports whether the listener should stop.
func (k *Keyboard) Handle(key keys.Key) bool {
	switch key.Code {
	case keys.CtrlC, keys.Escape:
		if k.OnInterrupt != nil {
			k.OnInterrupt()
		}
		return true
	case keys.RuneKey:
		for _, r := range key.Runes {
			k.HandleRune(r)
		}
	}
	return false
}

// HandleRune routes a single character to the player bound to it, if any.
func (k *Keyboard) HandleRune(r rune) {
	b, ok := k.bindings[r]
	if !ok {
		return
	}
	if !k.queues[b.player].Press(b.slot) {
		k.log.Debugf("Key %q dropped, player %d's queue is full.", r, b.player)
	}
}

// Listen reads the terminal until ctx is done or an interrupt key is pressed, then
// closes every queue.
func (k *Keyboard) Listen(ctx context.Context) error {
	defer func() {
		for _, q := range k.queues {
			q.Close()
		}
	}()

	errc := make(chan error, 1)
	go func() {
		errc <- keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			if ctx.Err() != nil {
				return true, nil
			}
			return k.Handle(key), nil
		})
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}
