package item

import "time"

// Item is a catalog entry. Copies is the number of units currently
// available for reservation and is only ever mutated through
// Repository.AdjustCopies.
type Item struct {
	InvID       string
	Name        string
	Description string
	Type        string
	Copies      int
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (i *Item) HasCopies(n int) bool {
	return i.Copies >= n
}

// Reservable reports whether the item can take part in a new reservation.
func (i *Item) Reservable() bool {
	return !i.Archived
}
