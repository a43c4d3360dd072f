package table

import "github.com/lox/holdemtables/internal/store"

// SeatState is the membership state of a seat.
type SeatState string

const (
	SeatEmpty      SeatState = "empty"
	SeatOccupied   SeatState = "occupied"
	SeatSittingOut SeatState = "sitting_out"
)

// Seat is an occupied seat.
type Seat struct {
	PlayerID   string
	Name       string
	Stack      int
	SittingOut bool

	// leaving is set when the player asked to leave during a hand they
	// are dealt into. They fold when their turn comes and are cashed out
	// once the hand is paid.
	leaving bool
}

// State returns the seat's membership state.
func (s *Seat) State() SeatState {
	if s.SittingOut || s.leaving {
		return SeatSittingOut
	}
	return SeatOccupied
}

// eligible reports whether the seat is dealt into the next hand.
func (s *Seat) eligible() bool {
	return s != nil && !s.SittingOut && !s.leaving && s.Stack > 0
}

func (s *Seat) record(tableID string, index int) store.SeatRecord {
	return store.SeatRecord{
		TableID:    tableID,
		Seat:       index,
		PlayerID:   s.PlayerID,
		Name:       s.Name,
		Stack:      s.Stack,
		SittingOut: s.SittingOut,
	}
}

func seatFromRecord(r store.SeatRecord) *Seat {
	return &Seat{
		PlayerID:   r.PlayerID,
		Name:       r.Name,
		Stack:      r.Stack,
		SittingOut: r.SittingOut,
	}
}
