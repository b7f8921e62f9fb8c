package create

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/infra/metrics"
	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/protocols"
)

// Create is the reservation admission engine. Every precondition is
// checked in order and the whole sequence commits or leaves all stores
// unchanged: the quota slot and the stock decrement are taken as atomic
// conditional updates, and any later failure compensates them.
type Create struct {
	directory   protocols.InventoryDirectory
	store       protocols.ReservationStore
	quotas      protocols.QuotaStore
	idempotency protocols.IdempotencyGateway
	publisher   protocols.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

func NewCreate(
	directory protocols.InventoryDirectory,
	store protocols.ReservationStore,
	quotas protocols.QuotaStore,
	idempotency protocols.IdempotencyGateway,
	publisher protocols.EventPublisher,
	logger *zap.Logger,
) *Create {
	return &Create{
		directory:   directory,
		store:       store,
		quotas:      quotas,
		idempotency: idempotency,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the engine clock. Used by tests.
func (c *Create) WithClock(now func() time.Time) *Create {
	c.now = now
	return c
}

type Input struct {
	User            string
	UserEmail       string
	InvID           string
	CopiesRequested int
	IdempotencyKey  string
}

type Output struct {
	ReservationID string
	QuotaUsed     int
	ExpiresAt     time.Time
}

func (c *Create) Create(ctx context.Context, input Input) (Output, error) {
	if input.IdempotencyKey == "" {
		return c.admit(ctx, input)
	}

	prior, err := c.idempotency.Reserve(ctx, input.IdempotencyKey)
	if err != nil {
		return Output{}, err
	}
	if prior != nil {
		return Output{ReservationID: prior.ReservationID, QuotaUsed: prior.QuotaUsed}, nil
	}

	out, err := c.admit(ctx, input)
	if err != nil {
		_ = c.idempotency.MarkFailure(ctx, input.IdempotencyKey)
		return Output{}, err
	}
	_ = c.idempotency.MarkSuccess(ctx, input.IdempotencyKey, &protocols.AdmissionResult{
		ReservationID: out.ReservationID,
		QuotaUsed:     out.QuotaUsed,
	})
	return out, nil
}

func (c *Create) admit(ctx context.Context, input Input) (out Output, err error) {
	defer func() { metrics.AdmissionTotal.WithLabelValues(outcome(err)).Inc() }()

	if err := validate(input); err != nil {
		return Output{}, err
	}
	invID := strings.TrimSpace(input.InvID)

	it, err := c.directory.Lookup(ctx, invID)
	if err != nil {
		return Output{}, err
	}
	if it.Archived {
		return Output{}, fmt.Errorf("%w: item %s is archived", reservation.ErrNotFound, invID)
	}

	existing, err := c.store.FindOpenByUserAndItem(ctx, input.User, invID)
	if err != nil {
		return Output{}, err
	}
	if existing != nil {
		return Output{}, reservation.ErrConflict
	}

	now := c.now().UTC()
	month := reservation.MonthKey(now)
	quotaUsed, err := c.quotas.Increment(ctx, input.User, month, it.Name, reservation.MaxPerMonth)
	if err != nil {
		return Output{}, err
	}

	if err := c.directory.AdjustCopies(ctx, invID, -input.CopiesRequested); err != nil {
		c.compensateQuota(ctx, input.User, month, it.Name)
		return Output{}, err
	}

	res := &reservation.Reservation{
		ReservationID:  uuid.NewString(),
		User:           input.User,
		UserEmail:      input.UserEmail,
		InvID:          invID,
		ItemName:       it.Name,
		Status:         reservation.StatusReserved,
		StatusComment:  "Reserved",
		CopiesReserved: input.CopiesRequested,
		CreatedAt:      now,
		ExpiresAt:      now.Add(reservation.HoldDuration),
	}
	if err := c.store.Insert(ctx, res); err != nil {
		if creditErr := c.directory.AdjustCopies(ctx, invID, input.CopiesRequested); creditErr != nil {
			c.logger.Error("stock compensation failed",
				zap.String("inv_id", invID), zap.Error(creditErr))
		}
		c.compensateQuota(ctx, input.User, month, it.Name)
		return Output{}, err
	}

	c.publish(ctx, res)
	return Output{
		ReservationID: res.ReservationID,
		QuotaUsed:     quotaUsed,
		ExpiresAt:     res.ExpiresAt,
	}, nil
}

func validate(input Input) error {
	if strings.TrimSpace(input.User) == "" {
		return fmt.Errorf("%w: user is required", reservation.ErrValidation)
	}
	if strings.TrimSpace(input.UserEmail) == "" {
		return fmt.Errorf("%w: user_email is required", reservation.ErrValidation)
	}
	if strings.TrimSpace(input.InvID) == "" {
		return fmt.Errorf("%w: inv_id is required", reservation.ErrValidation)
	}
	if input.CopiesRequested < 1 {
		return fmt.Errorf("%w: copies_requested must be greater than 0", reservation.ErrValidation)
	}
	if input.CopiesRequested > reservation.MaxCopiesPerReservation {
		return fmt.Errorf("%w: maximum of %d copies allowed per reservation",
			reservation.ErrValidation, reservation.MaxCopiesPerReservation)
	}
	return nil
}

func (c *Create) compensateQuota(ctx context.Context, user string, month int, itemName string) {
	if err := c.quotas.Decrement(ctx, user, month, itemName); err != nil {
		c.logger.Error("quota compensation failed",
			zap.String("user", user), zap.Int("month", month), zap.Error(err))
	}
}

func (c *Create) publish(ctx context.Context, res *reservation.Reservation) {
	event := &protocols.ReservationEvent{
		Type:          "reservation.created",
		ReservationID: res.ReservationID,
		User:          res.User,
		InvID:         res.InvID,
		Copies:        res.CopiesReserved,
		Timestamp:     res.CreatedAt,
	}
	if err := c.publisher.PublishReservationEvent(ctx, event); err != nil {
		c.logger.Warn("publish reservation event failed",
			zap.String("reservation_id", res.ReservationID), zap.Error(err))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "admitted"
	case errors.Is(err, reservation.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, reservation.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, reservation.ErrConflict):
		return "conflict"
	case errors.Is(err, reservation.ErrNotFound):
		return "not_found"
	case errors.Is(err, reservation.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, reservation.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
