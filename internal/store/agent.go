package store

import (
	"slices"
	"sync"

	"github.com/efreitasn/hermes/internal/domain"
)

// AgentStore is a thread-safe in-memory registry of the agent population,
// keyed by agent ID.
type AgentStore struct {
	mu     sync.RWMutex
	agents map[int64]*domain.Agent
}

// NewAgentStore creates an empty AgentStore.
func NewAgentStore() *AgentStore {
	return &AgentStore{
		agents: make(map[int64]*domain.Agent),
	}
}

// Create adds an agent to the store. It returns
// domain.ErrAgentAlreadyExists if an agent with the same ID
// already exists.
func (s *AgentStore) Create(a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.agents[a.ID]; exists {
		return domain.ErrAgentAlreadyExists
	}
	s.agents[a.ID] = a
	return nil
}

// Get retrieves an agent by ID. It returns
// domain.ErrAgentNotFound if the agent does not exist.
func (s *AgentStore) Get(id int64) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, domain.ErrAgentNotFound
	}
	return a, nil
}

// Exists reports whether an agent with the given ID exists.
func (s *AgentStore) Exists(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.agents[id]
	return ok
}

// Len returns the number of registered agents.
func (s *AgentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// All returns every agent ordered by ascending ID.
func (s *AgentStore) All() []*domain.Agent {
	s.mu.RLock()
	out := make([]*domain.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *domain.Agent) int {
		return compareInt64(a.ID, b.ID)
	})
	return out
}

// TopByMoney returns up to n agents with the most money, richest first.
// Ties are broken by ascending ID.
func (s *AgentStore) TopByMoney(n int) []*domain.Agent {
	if n <= 0 {
		return []*domain.Agent{}
	}
	all := s.All()
	balances := make(map[int64]int64, len(all))
	for _, a := range all {
		balances[a.ID] = a.Balance()
	}
	slices.SortStableFunc(all, func(a, b *domain.Agent) int {
		return compareInt64(balances[b.ID], balances[a.ID])
	})
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
