package service

import (
	"github.com/efreitasn/hermes/internal/domain"
	"github.com/efreitasn/hermes/internal/store"
)

// AgentReport is a point-in-time view of one agent.
type AgentReport struct {
	ID             int64
	Money          int64
	Holdings       map[domain.Good]int64
	InventoryValue int64
	NetWorth       int64 // money plus inventory at list prices
	Trades         int
}

// GoodReport aggregates the trades of one good over the run.
type GoodReport struct {
	Good   domain.Good
	Price  int64
	Trades int
	Units  int64
	Value  int64
}

// ReportService answers read-only queries about a run.
type ReportService struct {
	agents *store.AgentStore
	days   *store.DayStore
	trades *store.TradeStore
}

// NewReportService creates a new ReportService with the given dependencies.
func NewReportService(agents *store.AgentStore, days *store.DayStore, trades *store.TradeStore) *ReportService {
	return &ReportService{
		agents: agents,
		days:   days,
		trades: trades,
	}
}

// ListDays returns day summaries newest first with 1-based pagination and
// the total number of days.
func (s *ReportService) ListDays(page, limit int) ([]*domain.DaySummary, int, error) {
	if page < 1 {
		return nil, 0, &domain.ValidationError{Message: "page must be >= 1"}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{Message: "limit must be between 1 and 100"}
	}
	days, total := s.days.List(page, limit)
	return days, total, nil
}

// GetDay returns the summary of one day.
func (s *ReportService) GetDay(day int) (*domain.DaySummary, error) {
	if day < 1 {
		return nil, &domain.ValidationError{Message: "day must be >= 1"}
	}
	return s.days.Get(day)
}

// TopAgents returns up to limit agents ranked by money, richest first.
func (s *ReportService) TopAgents(limit int) ([]*AgentReport, error) {
	if limit < 1 || limit > 100 {
		return nil, &domain.ValidationError{Message: "limit must be between 1 and 100"}
	}
	agents := s.agents.TopByMoney(limit)
	out := make([]*AgentReport, len(agents))
	for i, a := range agents {
		out[i] = s.report(a)
	}
	return out, nil
}

// GetAgent returns the report for one agent.
func (s *ReportService) GetAgent(id int64) (*AgentReport, error) {
	a, err := s.agents.Get(id)
	if err != nil {
		return nil, err
	}
	return s.report(a), nil
}

// GetGood aggregates the trades of the good named by symbol.
func (s *ReportService) GetGood(symbol string) (*GoodReport, error) {
	g, err := domain.ParseGood(symbol)
	if err != nil {
		return nil, err
	}
	r := &GoodReport{Good: g, Price: domain.Price(g)}
	for _, t := range s.trades.GetByGood(g) {
		r.Trades++
		r.Units += t.Amount
		r.Value += t.Cost
	}
	return r, nil
}

func (s *ReportService) report(a *domain.Agent) *AgentReport {
	a.Mu.Lock()
	r := &AgentReport{
		ID:       a.ID,
		Money:    a.Money,
		Holdings: make(map[domain.Good]int64, len(a.Inventory)),
	}
	for g, qty := range a.Inventory {
		if qty == 0 {
			continue
		}
		r.Holdings[g] = qty
		r.InventoryValue += domain.Price(g) * qty
	}
	a.Mu.Unlock()

	r.NetWorth = r.Money + r.InventoryValue
	if s.trades != nil {
		r.Trades = len(s.trades.GetByAgent(a.ID))
	}
	return r
}
