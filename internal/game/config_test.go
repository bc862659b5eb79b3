package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 81, cfg.DeckSize)
	assert.Equal(t, 12, cfg.TableSize)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"no players":         func(c *Config) { c.Players = 0 },
		"too many randoms":   func(c *Config) { c.RandomPlayers = c.Players + 1 },
		"tiny table":         func(c *Config) { c.TableSize = 2 },
		"deck beyond rules":  func(c *Config) { c.DeckSize = 82 },
		"empty deck":         func(c *Config) { c.DeckSize = 0 },
		"negative freeze":    func(c *Config) { c.PenaltyFreezeMillis = -1 },
		"negative delay":     func(c *Config) { c.TableDelayMillis = -5 },
		"degenerate feature": func(c *Config) { c.Rules.FeatureSize = 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := DefaultConfig()
	cfg.TurnTimeoutMillis = -1
	assert.NoError(t, cfg.Validate(), "a negative turn timeout disables the timer")
}

func TestConfigUpdate(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Update(map[string]interface{}{
		"players":           float64(4),
		"turnTimeoutMillis": float64(0),
		"tableSize":         15,
		"hints":             true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Players)
	assert.Equal(t, int64(0), cfg.TurnTimeoutMillis)
	assert.Equal(t, 15, cfg.TableSize)
	assert.True(t, cfg.Hints)
	assert.Equal(t, int64(3000), cfg.PenaltyFreezeMillis, "absent keys keep their value")

	assert.Error(t, cfg.Update(map[string]interface{}{"hints": "yes"}))
	assert.Error(t, cfg.Update(map[string]interface{}{"players": "four"}))
}
