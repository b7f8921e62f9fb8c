package query

import (
	"context"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/protocols"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Query struct {
	store  protocols.ReservationStore
	quotas protocols.QuotaStore
}

func NewQuery(store protocols.ReservationStore, quotas protocols.QuotaStore) *Query {
	return &Query{store: store, quotas: quotas}
}

func (q *Query) Get(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	return q.store.FindByID(ctx, reservationID)
}

func (q *Query) List(ctx context.Context, user string, page, limit int) (ListOutput, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	reservations, total, err := q.store.List(ctx, user, page, limit)
	if err != nil {
		return ListOutput{}, err
	}
	return ListOutput{Reservations: reservations, Total: total, Page: page, Limit: limit}, nil
}

func (q *Query) Quota(ctx context.Context, user string, month int) (*reservation.MonthlyQuota, error) {
	return q.quotas.GetOrCreate(ctx, user, month)
}

type ListOutput struct {
	Reservations []reservation.Reservation
	Total        int64
	Page         int
	Limit        int
}
