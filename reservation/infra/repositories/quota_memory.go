package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
)

type QuotaStoreMemory struct {
	mu     sync.Mutex
	quotas map[string]*reservation.MonthlyQuota
}

func NewQuotaStoreMemory() *QuotaStoreMemory {
	return &QuotaStoreMemory{quotas: make(map[string]*reservation.MonthlyQuota)}
}

func quotaKey(user string, month int) string {
	return fmt.Sprintf("%s:%d", user, month)
}

func (s *QuotaStoreMemory) GetOrCreate(ctx context.Context, user string, month int) (*reservation.MonthlyQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.getOrCreateLocked(user, month)
	cp := *q
	cp.ReservedItemNames = append([]string(nil), q.ReservedItemNames...)
	return &cp, nil
}

func (s *QuotaStoreMemory) Increment(ctx context.Context, user string, month int, itemName string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.getOrCreateLocked(user, month)
	if q.ReservationCount >= limit {
		return 0, reservation.ErrQuotaExceeded
	}
	q.ReservationCount++
	q.ReservedItemNames = append(q.ReservedItemNames, itemName)
	return q.ReservationCount, nil
}

func (s *QuotaStoreMemory) Decrement(ctx context.Context, user string, month int, itemName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.getOrCreateLocked(user, month)
	if q.ReservationCount > 0 {
		q.ReservationCount--
	}
	for i, name := range q.ReservedItemNames {
		if name == itemName {
			q.ReservedItemNames = append(q.ReservedItemNames[:i], q.ReservedItemNames[i+1:]...)
			break
		}
	}
	return nil
}

func (s *QuotaStoreMemory) getOrCreateLocked(user string, month int) *reservation.MonthlyQuota {
	key := quotaKey(user, month)
	q, ok := s.quotas[key]
	if !ok {
		q = &reservation.MonthlyQuota{User: user, Month: month}
		s.quotas[key] = q
	}
	return q
}
