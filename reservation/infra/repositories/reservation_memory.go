package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
)

// ReservationStoreMemory keeps reservations in process memory. Used by
// tests and standalone mode.
type ReservationStoreMemory struct {
	mu           sync.Mutex
	reservations map[string]*reservation.Reservation
}

func NewReservationStoreMemory() *ReservationStoreMemory {
	return &ReservationStoreMemory{reservations: make(map[string]*reservation.Reservation)}
}

func (s *ReservationStoreMemory) Insert(ctx context.Context, r *reservation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Duplicate check and write under one lock so concurrent admissions
	// for the same (user, item) cannot both commit.
	if r.Open() {
		for _, existing := range s.reservations {
			if existing.User == r.User && existing.InvID == r.InvID && existing.Open() {
				return reservation.ErrConflict
			}
		}
	}
	cp := *r
	s.reservations[r.ReservationID] = &cp
	return nil
}

func (s *ReservationStoreMemory) FindByID(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *ReservationStoreMemory) FindOpenByUserAndItem(ctx context.Context, user, invID string) (*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.User == user && r.InvID == invID && r.Open() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *ReservationStoreMemory) List(ctx context.Context, user string, page, limit int) ([]reservation.Reservation, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]reservation.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		if user != "" && r.User != user {
			continue
		}
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ReservationID < all[j].ReservationID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (s *ReservationStoreMemory) UpdateStatus(ctx context.Context, reservationID string, status reservation.Status, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return reservation.ErrNotFound
	}
	r.Status = status
	r.StatusComment = comment
	return nil
}

func (s *ReservationStoreMemory) UpdateStatusMany(ctx context.Context, reservationIDs []string, status reservation.Status, comment string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched int64
	for _, id := range reservationIDs {
		if r, ok := s.reservations[id]; ok && r.Open() {
			r.Status = status
			r.StatusComment = comment
			matched++
		}
	}
	return matched, nil
}

func (s *ReservationStoreMemory) Delete(ctx context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[reservationID]; !ok {
		return reservation.ErrNotFound
	}
	delete(s.reservations, reservationID)
	return nil
}

func (s *ReservationStoreMemory) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.reservations))
	s.reservations = make(map[string]*reservation.Reservation)
	return n, nil
}
