package create

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
	invrepos "github.com/shelfmark/shelfmark/inventory/infra/repositories"
	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/infra/events"
	"github.com/shelfmark/shelfmark/reservation/infra/gateways"
	"github.com/shelfmark/shelfmark/reservation/infra/repositories"
	"github.com/shelfmark/shelfmark/reservation/protocols"
)

type fixture struct {
	engine    *Create
	items     *invrepos.ItemRepositoryMemory
	store     *repositories.ReservationStoreMemory
	quotas    *repositories.QuotaStoreMemory
	directory protocols.InventoryDirectory
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	items := invrepos.NewItemRepositoryMemory()
	store := repositories.NewReservationStoreMemory()
	quotas := repositories.NewQuotaStoreMemory()
	directory := gateways.NewInventoryDirectoryEmbedded(items)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	engine := NewCreate(directory, store, quotas,
		gateways.NewIdempotencyGatewayMemory(), events.NopPublisher{}, zap.NewNop(),
	).WithClock(func() time.Time { return now })
	return &fixture{engine: engine, items: items, store: store, quotas: quotas, directory: directory, now: now}
}

func (f *fixture) addItem(t *testing.T, invID, name string, copies int, archived bool) {
	t.Helper()
	err := f.items.Create(context.Background(), &item.Item{
		InvID: invID, Name: name, Copies: copies, Archived: archived,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
}

func validInput(invID string) Input {
	return Input{
		User:            "alice",
		UserEmail:       "alice@example.com",
		InvID:           invID,
		CopiesRequested: 1,
	}
}

func TestCreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "inv-1", "The Go Programming Language", 3, false)

	out, err := f.engine.Create(context.Background(), validInput("inv-1"))
	if err != nil {
		t.Fatalf("expected admission, got %v", err)
	}
	if out.ReservationID == "" {
		t.Fatalf("expected a reservation id")
	}
	if out.QuotaUsed != 1 {
		t.Fatalf("expected quota used 1, got %d", out.QuotaUsed)
	}

	res, err := f.store.FindByID(context.Background(), out.ReservationID)
	if err != nil {
		t.Fatalf("expected reservation persisted, got %v", err)
	}
	if res.Status != reservation.StatusReserved {
		t.Fatalf("expected status Reserved, got %s", res.Status)
	}
	if !res.ExpiresAt.After(res.CreatedAt) {
		t.Fatalf("expected expires_at after created_at")
	}
	if got := f.now.Add(reservation.HoldDuration); !res.ExpiresAt.Equal(got) {
		t.Fatalf("expected expires_at %v, got %v", got, res.ExpiresAt)
	}
	if res.ItemName != "The Go Programming Language" {
		t.Fatalf("expected item name snapshot, got %q", res.ItemName)
	}

	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 2 {
		t.Fatalf("expected 2 copies left, got %d", it.Copies)
	}
}

func TestCreateUnknownItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Create(context.Background(), validInput("missing"))
	if !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateArchivedItem(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "inv-1", "Archived Book", 5, true)

	_, err := f.engine.Create(context.Background(), validInput("inv-1"))
	if !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for archived item, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "inv-1", "Book", 5, false)

	cases := []struct {
		name  string
		input Input
	}{
		{"missing user", Input{UserEmail: "a@b.c", InvID: "inv-1", CopiesRequested: 1}},
		{"missing email", Input{User: "alice", InvID: "inv-1", CopiesRequested: 1}},
		{"missing inv_id", Input{User: "alice", UserEmail: "a@b.c", CopiesRequested: 1}},
		{"zero copies", Input{User: "alice", UserEmail: "a@b.c", InvID: "inv-1"}},
		{"too many copies", Input{User: "alice", UserEmail: "a@b.c", InvID: "inv-1", CopiesRequested: 4}},
	}
	for _, tc := range cases {
		if _, err := f.engine.Create(context.Background(), tc.input); !errors.Is(err, reservation.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestCreateDuplicateRejected(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "inv-1", "Book", 5, false)

	if _, err := f.engine.Create(context.Background(), validInput("inv-1")); err != nil {
		t.Fatalf("first admission failed: %v", err)
	}
	if _, err := f.engine.Create(context.Background(), validInput("inv-1")); !errors.Is(err, reservation.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 4 {
		t.Fatalf("expected copies untouched by rejected admission, got %d", it.Copies)
	}
}

func TestCreateQuotaLimit(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"inv-1", "inv-2", "inv-3", "inv-4"} {
		f.addItem(t, id, "Book "+id, 5, false)
	}

	for _, id := range []string{"inv-1", "inv-2", "inv-3"} {
		if _, err := f.engine.Create(context.Background(), validInput(id)); err != nil {
			t.Fatalf("admission for %s failed: %v", id, err)
		}
	}

	_, err := f.engine.Create(context.Background(), validInput("inv-4"))
	if !errors.Is(err, reservation.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded on 4th admission, got %v", err)
	}

	// The rejected attempt must not leave any trace.
	_, total, _ := f.store.List(context.Background(), "alice", 1, 10)
	if total != 3 {
		t.Fatalf("expected 3 reservations, got %d", total)
	}
	it, _ := f.items.Get(context.Background(), "inv-4")
	if it.Copies != 5 {
		t.Fatalf("expected inv-4 copies unchanged, got %d", it.Copies)
	}
	q, _ := f.quotas.GetOrCreate(context.Background(), "alice", reservation.MonthKey(f.now))
	if q.ReservationCount != 3 {
		t.Fatalf("expected quota count 3, got %d", q.ReservationCount)
	}
}

func TestCreateInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "inv-1", "Book", 1, false)

	input := validInput("inv-1")
	input.CopiesRequested = 2
	_, err := f.engine.Create(context.Background(), input)
	if !errors.Is(err, reservation.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 1 {
		t.Fatalf("expected copies unchanged, got %d", it.Copies)
	}
	// The quota slot taken before the stock check must be released.
	q, _ := f.quotas.GetOrCreate(context.Background(), "alice", reservation.MonthKey(f.now))
	if q.ReservationCount != 0 {
		t.Fatalf("expected quota count 0 after compensation, got %d", q.ReservationCount)
	}
	if _, total, _ := f.store.List(context.Background(), "alice", 1, 10); total != 0 {
		t.Fatalf("expected no reservations, got %d", total)
	}
}

func TestCreateConcurrentAdmissions(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "inv-1", "Book", 1, false)

	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, user := range users {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			input := validInput("inv-1")
			input.User = user
			input.UserEmail = user + "@example.com"
			_, errs[i] = f.engine.Create(context.Background(), input)
		}(i, user)
	}
	wg.Wait()

	var admitted, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, reservation.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if admitted != 1 || rejected != len(users)-1 {
		t.Fatalf("expected exactly 1 admission, got %d admitted / %d rejected", admitted, rejected)
	}
	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 0 {
		t.Fatalf("expected 0 copies, got %d", it.Copies)
	}
}

func TestCreateConcurrentSameUserSingleAdmission(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "inv-1", "Book", 5, false)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Create(context.Background(), validInput("inv-1"))
		}(i)
	}
	wg.Wait()

	var admitted int
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, reservation.ErrConflict), errors.Is(err, reservation.ErrQuotaExceeded):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if admitted != 1 {
		t.Fatalf("expected exactly one admission for the same user and item, got %d", admitted)
	}
	if _, total, _ := f.store.List(context.Background(), "alice", 1, 10); total != 1 {
		t.Fatalf("expected a single reservation, got %d", total)
	}
	// Losers compensated both the stock decrement and the quota slot.
	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 4 {
		t.Fatalf("expected a single decrement, got %d copies", it.Copies)
	}
	q, _ := f.quotas.GetOrCreate(context.Background(), "alice", reservation.MonthKey(f.now))
	if q.ReservationCount != 1 {
		t.Fatalf("expected quota count 1, got %d", q.ReservationCount)
	}
}

func TestCreateIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "inv-1", "Book", 5, false)

	input := validInput("inv-1")
	input.IdempotencyKey = "key-1"
	first, err := f.engine.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("first admission failed: %v", err)
	}
	second, err := f.engine.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.ReservationID != first.ReservationID {
		t.Fatalf("expected replay to return the same reservation id")
	}
	if _, total, _ := f.store.List(context.Background(), "alice", 1, 10); total != 1 {
		t.Fatalf("expected a single reservation, got %d", total)
	}
	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 4 {
		t.Fatalf("expected a single decrement, got %d copies", it.Copies)
	}
}

type unavailableDirectory struct{}

func (unavailableDirectory) Lookup(ctx context.Context, invID string) (*protocols.InventoryItem, error) {
	return nil, reservation.ErrUpstreamUnavailable
}

func (unavailableDirectory) ListAll(ctx context.Context) ([]protocols.InventoryItem, error) {
	return nil, reservation.ErrUpstreamUnavailable
}

func (unavailableDirectory) AdjustCopies(ctx context.Context, invID string, delta int) error {
	return reservation.ErrUpstreamUnavailable
}

func TestCreateUpstreamUnavailable(t *testing.T) {
	store := repositories.NewReservationStoreMemory()
	quotas := repositories.NewQuotaStoreMemory()
	engine := NewCreate(unavailableDirectory{}, store, quotas,
		gateways.NewIdempotencyGatewayMemory(), events.NopPublisher{}, zap.NewNop())

	_, err := engine.Create(context.Background(), validInput("inv-1"))
	if !errors.Is(err, reservation.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if _, total, _ := store.List(context.Background(), "", 1, 10); total != 0 {
		t.Fatalf("expected no reservations, got %d", total)
	}
	q, _ := quotas.GetOrCreate(context.Background(), "alice", 202403)
	if q.ReservationCount != 0 {
		t.Fatalf("expected quota untouched, got %d", q.ReservationCount)
	}
}
