package store

import (
	"sync"

	"github.com/efreitasn/hermes/internal/domain"
)

// DayStore is a thread-safe in-memory store for day summaries,
// keyed by day number.
type DayStore struct {
	mu    sync.RWMutex
	days  map[int]*domain.DaySummary
	order []int // days in the order they were recorded
}

// NewDayStore creates an empty DayStore.
func NewDayStore() *DayStore {
	return &DayStore{
		days: make(map[int]*domain.DaySummary),
	}
}

// Put records a day's summary, replacing an earlier one for the same day.
func (s *DayStore) Put(d *domain.DaySummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.days[d.Day]; !exists {
		s.order = append(s.order, d.Day)
	}
	s.days[d.Day] = d
}

// Get retrieves a day's summary. It returns domain.ErrDayNotFound
// if the day has not been recorded.
func (s *DayStore) Get(day int) (*domain.DaySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.days[day]
	if !ok {
		return nil, domain.ErrDayNotFound
	}
	return d, nil
}

// Latest returns the most recently recorded day, if any.
func (s *DayStore) Latest() (*domain.DaySummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, false
	}
	return s.days[s.order[len(s.order)-1]], true
}

// List returns summaries newest first. Pagination is 1-based. Returns the
// summaries for the requested page and the total count.
func (s *DayStore) List(page, limit int) ([]*domain.DaySummary, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	start := (page - 1) * limit
	if page < 1 || limit < 1 || start >= total {
		return []*domain.DaySummary{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]*domain.DaySummary, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, s.days[s.order[total-1-i]])
	}
	return out, total
}
