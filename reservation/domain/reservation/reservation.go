package reservation

import "time"

type Status string

const (
	StatusRequested Status = "Requested"
	StatusReserved  Status = "Reserved"
	StatusReturned  Status = "Returned"
	StatusCancelled Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusReserved, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses no longer hold stock: entering one credits the
// reserved copies back to inventory, exactly once.
func (s Status) Terminal() bool {
	return s == StatusReturned || s == StatusCancelled
}

const (
	// MaxPerMonth caps non-cancelled reservations per user per calendar month.
	MaxPerMonth = 3
	// MaxCopiesPerReservation caps copies taken by a single reservation.
	MaxCopiesPerReservation = 3
	// HoldDuration is how long a reservation stays valid after admission.
	HoldDuration = 30 * 24 * time.Hour
)

type Reservation struct {
	ReservationID  string
	User           string
	UserEmail      string
	InvID          string
	ItemName       string
	Status         Status
	StatusComment  string
	CopiesReserved int
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Open reports whether the reservation still holds stock against its item.
func (r *Reservation) Open() bool {
	return !r.Status.Terminal()
}

// MonthlyQuota is the per-(user, month) admission counter. Month is a
// YYYYMM key so records sort and compare naturally.
type MonthlyQuota struct {
	User              string
	Month             int
	ReservationCount  int
	ReservedItemNames []string
}

func MonthKey(t time.Time) int {
	t = t.UTC()
	return t.Year()*100 + int(t.Month())
}
