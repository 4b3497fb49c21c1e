package bot

import (
	"github.com/mcoot/bidwars/internal/dependencies/random"
	"github.com/mcoot/bidwars/internal/model"
)

// StrategyRandom is the name of the default strategy
const StrategyRandom = "random"

// Strategy decides how much an AI player bids on an item
type Strategy interface {
	// ChooseBid returns the amount to request. Amounts above the player's
	// capital are clamped by the bid validator.
	ChooseBid(player *model.Player, item model.Item, round int) float64
}

// RandomStrategy bids a random 30-80% of the player's capital
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// ChooseBid returns a random fraction of the player's capital
func (s *RandomStrategy) ChooseBid(player *model.Player, item model.Item, round int) float64 {
	if player.Capital <= 0 {
		return 0
	}
	percent := 30 + s.random.Intn(51)
	return float64(player.Capital * int64(percent) / 100)
}

// DefaultStrategies returns the built-in strategies keyed by name
func DefaultStrategies(rnd random.Random) map[string]Strategy {
	return map[string]Strategy{
		StrategyRandom: NewRandomStrategy(rnd),
	}
}
