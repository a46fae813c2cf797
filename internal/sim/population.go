package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/efreitasn/hermes/internal/domain"
)

// PopulationConfig describes the starting population.
type PopulationConfig struct {
	NumAgents        int
	StartingMoney    int64
	MaxStartingGoods int64
	DailyLimit       float64
	Seed             uint64
}

// NewPopulation builds NumAgents agents with IDs 1..NumAgents. Every agent
// starts with the same money and the same inventory, drawn once per good
// uniformly from [0, MaxStartingGoods].
func NewPopulation(cfg PopulationConfig) ([]*domain.Agent, error) {
	if cfg.NumAgents <= 0 {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("number of agents must be > 0, got %d", cfg.NumAgents)}
	}
	if cfg.MaxStartingGoods < 0 {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("max starting goods must be >= 0, got %d", cfg.MaxStartingGoods)}
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	inventory := make(map[domain.Good]int64, domain.NumGoods)
	for _, g := range domain.AllGoods() {
		inventory[g] = rng.Int64N(cfg.MaxStartingGoods + 1)
	}

	agents := make([]*domain.Agent, cfg.NumAgents)
	for i := range agents {
		a, err := domain.NewAgent(int64(i+1), cfg.StartingMoney, inventory, cfg.DailyLimit, cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("build population: %w", err)
		}
		agents[i] = a
	}
	return agents, nil
}
