package game

import "github.com/lox/holdemtables/poker"

// Entrant is a seat dealt into a new hand.
type Entrant struct {
	Seat     int
	PlayerID string
	Stack    int
}

// Player is a seat's state within one hand.
type Player struct {
	Seat     int
	PlayerID string
	Stack    int
	Hole     []poker.Card

	Folded bool
	AllIn  bool

	// Placed is what the seat has put in on the current street.
	Placed int
	// Committed is what the seat has put in over the whole hand.
	Committed int

	// Acted is cleared whenever the current bet goes up.
	Acted bool
	// RaiseLocked is set when a short all-in raise reaches a seat that had
	// already matched the previous bet: it may call or fold but not raise.
	RaiseLocked bool
}

// InHand reports whether the seat has not folded.
func (p *Player) InHand() bool { return !p.Folded }

// CanAct reports whether the seat still makes decisions this hand.
func (p *Player) CanAct() bool { return !p.Folded && !p.AllIn }

func (p *Player) commit(amount int) {
	p.Stack -= amount
	p.Placed += amount
	p.Committed += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}
