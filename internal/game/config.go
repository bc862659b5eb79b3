// internal/game/config.go
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/setdealer/internal/cards"
)

// ErrInvalidConfig is returned (wrapped) when a Config cannot run a game.
var ErrInvalidConfig = errors.New("invalid game config")

// Config holds the fixed parameters of a single game. It is read once at construction.
type Config struct {
	Players       int `json:"players"`       // total number of players, >= 1
	RandomPlayers int `json:"randomPlayers"` // how many of Players are driven by random key presses
	DeckSize      int `json:"deckSize"`      // cards are the ids [0, DeckSize)
	TableSize     int `json:"tableSize"`     // number of slots on the table

	// TurnTimeoutMillis > 0 runs a countdown that forces a reshuffle when it expires.
	// 0 shows the time elapsed since the last deal instead; < 0 shows nothing. In both of
	// those modes the table is reshuffled only when it holds no set.
	TurnTimeoutMillis        int64 `json:"turnTimeoutMillis"`
	TurnTimeoutWarningMillis int64 `json:"turnTimeoutWarningMillis"` // countdown is shown as a warning below this
	PointFreezeMillis        int64 `json:"pointFreezeMillis"`
	PenaltyFreezeMillis      int64 `json:"penaltyFreezeMillis"`
	TableDelayMillis         int64 `json:"tableDelayMillis"` // pause between single card placements/removals

	Hints bool `json:"hints"` // log the sets on the table after every deal

	Rules cards.Rules `json:"rules"`
}

// DefaultConfig mirrors the classic game: 81 cards, 12 slots, a 60s turn.
func DefaultConfig() Config {
	return Config{
		Players:                  2,
		RandomPlayers:            0,
		DeckSize:                 81,
		TableSize:                12,
		TurnTimeoutMillis:        60000,
		TurnTimeoutWarningMillis: 5000,
		PointFreezeMillis:        1000,
		PenaltyFreezeMillis:      3000,
		TableDelayMillis:         100,
		Hints:                    false,
		Rules:                    cards.StandardRules(),
	}
}

// Validate fails fast on a configuration no game can run with.
func (c Config) Validate() error {
	switch {
	case c.Players < 1:
		return fmt.Errorf("%w: players must be at least 1, got %d", ErrInvalidConfig, c.Players)
	case c.RandomPlayers < 0 || c.RandomPlayers > c.Players:
		return fmt.Errorf("%w: randomPlayers must be within [0, %d], got %d", ErrInvalidConfig, c.Players, c.RandomPlayers)
	case c.TableSize < 3:
		return fmt.Errorf("%w: tableSize must be at least 3, got %d", ErrInvalidConfig, c.TableSize)
	case c.Rules.FeatureSize < 3 || c.Rules.FeatureCount < 1:
		return fmt.Errorf("%w: rules need featureSize >= 3 and featureCount >= 1", ErrInvalidConfig)
	case c.DeckSize < 1 || c.DeckSize > c.Rules.DeckSize():
		return fmt.Errorf("%w: deckSize must be within [1, %d], got %d", ErrInvalidConfig, c.Rules.DeckSize(), c.DeckSize)
	case c.PointFreezeMillis < 0 || c.PenaltyFreezeMillis < 0:
		return fmt.Errorf("%w: freeze durations must be non-negative", ErrInvalidConfig)
	case c.TurnTimeoutWarningMillis < 0 || c.TableDelayMillis < 0:
		return fmt.Errorf("%w: warning threshold and table delay must be non-negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutMillis) * time.Millisecond
}

func (c Config) TurnTimeoutWarning() time.Duration {
	return time.Duration(c.TurnTimeoutWarningMillis) * time.Millisecond
}

func (c Config) PointFreeze() time.Duration {
	return time.Duration(c.PointFreezeMillis) * time.Millisecond
}

func (c Config) PenaltyFreeze() time.Duration {
	return time.Duration(c.PenaltyFreezeMillis) * time.Millisecond
}

func (c Config) TableDelay() time.Duration {
	return time.Duration(c.TableDelayMillis) * time.Millisecond
}

// Update overrides the config with the values present in newValues (e.g. decoded JSON).
// Keys that are absent keep their old value. Validation of the result is left to Validate.
func (c *Config) Update(newValues map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		val, exists := newValues[key]
		if !exists || val == nil {
			return nil
		}
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("invalid type for %s", key)
		}
		*field = b
		return nil
	}

	// JSON numbers arrive as float64, code paths build ints
	assignInt := func(field *int64, key string) error {
		val, exists := newValues[key]
		if !exists || val == nil {
			return nil
		}
		switch v := val.(type) {
		case float64:
			*field = int64(v)
		case int:
			*field = int64(v)
		case int64:
			*field = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		return nil
	}

	ints := []struct {
		key   string
		field *int64
	}{
		{"turnTimeoutMillis", &c.TurnTimeoutMillis},
		{"turnTimeoutWarningMillis", &c.TurnTimeoutWarningMillis},
		{"pointFreezeMillis", &c.PointFreezeMillis},
		{"penaltyFreezeMillis", &c.PenaltyFreezeMillis},
		{"tableDelayMillis", &c.TableDelayMillis},
	}
	for _, f := range ints {
		if err := assignInt(f.field, f.key); err != nil {
			return err
		}
	}

	counts := []struct {
		key   string
		field *int
	}{
		{"players", &c.Players},
		{"randomPlayers", &c.RandomPlayers},
		{"deckSize", &c.DeckSize},
		{"tableSize", &c.TableSize},
	}
	for _, f := range counts {
		v := int64(*f.field)
		if err := assignInt(&v, f.key); err != nil {
			return err
		}
		*f.field = int(v)
	}

	return assignBool(&c.Hints, "hints")
}
