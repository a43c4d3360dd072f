package table

import (
	"context"
	"slices"
	"time"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/poker"
)

// Publisher receives every table transition. Publish is called synchronously
// from the table goroutine, so implementations must not call back into the
// table.
type Publisher interface {
	Publish(ctx context.Context, u Update) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, u Update) error

func (f PublisherFunc) Publish(ctx context.Context, u Update) error { return f(ctx, u) }

// SeatView is the public state of one seat.
type SeatView struct {
	Seat       int           `json:"seat"`
	PlayerID   string        `json:"player_id,omitempty"`
	Name       string        `json:"name,omitempty"`
	State      SeatState     `json:"state"`
	Stack      int           `json:"stack"`
	InHand     bool          `json:"in_hand"`
	Folded     bool          `json:"folded"`
	AllIn      bool          `json:"all_in"`
	Bet        int           `json:"bet"`
	Committed  int           `json:"committed"`
	Timebank   time.Duration `json:"timebank"`
	Hole       []poker.Card  `json:"hole,omitempty"`
	HiddenHole int           `json:"hidden_hole,omitempty"`
}

// Snapshot is the state of a table as seen by one viewer. The public
// snapshot, with an empty Viewer, carries no hole cards except those shown
// at showdown.
type Snapshot struct {
	TableID    string       `json:"table_id"`
	Name       string       `json:"name"`
	SmallBlind int          `json:"small_blind"`
	BigBlind   int          `json:"big_blind"`
	MinBuyIn   int          `json:"min_buy_in"`
	MaxBuyIn   int          `json:"max_buy_in"`
	HandID     string       `json:"hand_id,omitempty"`
	HandNumber int          `json:"hand_number"`
	Street     string       `json:"street"`
	Button     int          `json:"button"`
	SmallSeat  int          `json:"small_blind_seat"`
	BigSeat    int          `json:"big_blind_seat"`
	ToAct      int          `json:"to_act"`
	Deadline   *time.Time   `json:"deadline,omitempty"`
	InTimebank bool         `json:"in_timebank,omitempty"`
	Board      []poker.Card `json:"board"`
	Pots       []game.Pot   `json:"pots"`
	Pot        int          `json:"pot"`
	Seats      []SeatView   `json:"seats"`
	Result     *game.Result `json:"result,omitempty"`
	Events     []Event      `json:"events,omitempty"`

	Viewer     string             `json:"viewer,omitempty"`
	ViewerSeat int                `json:"viewer_seat"`
	Legal      []game.LegalAction `json:"legal,omitempty"`
	ActionBar  *game.ActionBar    `json:"action_bar,omitempty"`
}

// StreetWaiting is reported when no hand is in progress.
const StreetWaiting = "waiting"

// Update is what a table publishes after a transition: the public snapshot
// plus the private parts needed to build each player's view.
type Update struct {
	Snapshot Snapshot
	// Holes maps player id to hole cards for every seat dealt in.
	Holes map[string][]poker.Card
	// Acting is the player id whose turn it is, and Legal their options.
	Acting string
	Legal  []game.LegalAction
}

// For returns the snapshot as seen by playerID: their own hole cards, and
// their legal actions when it is their turn. An empty playerID gets the
// public view.
func (u Update) For(playerID string) Snapshot {
	s := u.Snapshot
	s.Viewer = playerID
	s.ViewerSeat = -1
	s.Seats = slices.Clone(u.Snapshot.Seats)
	if playerID == "" {
		return s
	}
	for i := range s.Seats {
		if s.Seats[i].PlayerID != playerID {
			continue
		}
		s.ViewerSeat = s.Seats[i].Seat
		if hole, ok := u.Holes[playerID]; ok && len(s.Seats[i].Hole) == 0 {
			s.Seats[i].Hole = slices.Clone(hole)
			s.Seats[i].HiddenHole = 0
		}
	}
	if u.Acting == playerID && len(u.Legal) > 0 {
		s.Legal = slices.Clone(u.Legal)
		bar := game.NewActionBar(u.Legal)
		s.ActionBar = &bar
	}
	return s
}

// Recipients lists the player ids holding private state in this update.
func (u Update) Recipients() []string {
	out := make([]string, 0, len(u.Holes))
	for id := range u.Holes {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// update builds the current Update carrying events.
func (t *Table) update(events []Event) Update {
	s := Snapshot{
		TableID:    t.cfg.ID,
		Name:       t.cfg.Name,
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		MinBuyIn:   t.cfg.MinBuyIn,
		MaxBuyIn:   t.cfg.MaxBuyIn,
		HandNumber: t.handCount,
		Street:     StreetWaiting,
		Button:     t.button,
		SmallSeat:  -1,
		BigSeat:    -1,
		ToAct:      -1,
		ViewerSeat: -1,
		Board:      []poker.Card{},
		Events:     events,
	}
	u := Update{Holes: map[string][]poker.Card{}}

	h := t.hand
	if h == nil {
		h = t.last
	}
	if h != nil {
		s.HandID = h.ID()
		s.Street = h.Street().String()
		s.SmallSeat = h.SmallBlindSeat()
		s.BigSeat = h.BigBlindSeat()
		s.Board = h.Board()
		s.Pots = h.Pots()
		s.Pot = game.PotTotal(s.Pots)
		s.Result = h.Result()
		if t.hand != nil {
			s.ToAct = h.ToAct()
			if s.ToAct >= 0 {
				u.Legal = h.Legal(s.ToAct)
				if seat := t.seats[s.ToAct]; seat != nil {
					u.Acting = seat.PlayerID
				}
			}
			if seat, deadline, ok := t.turn.Running(); ok && seat == s.ToAct {
				s.Deadline = &deadline
				s.InTimebank = t.turn.InTimebank()
			}
		}
	}

	shown := map[int][]poker.Card{}
	if s.Result != nil {
		for _, sh := range s.Result.Shown {
			shown[sh.Seat] = sh.Hole
		}
	}

	for i, seat := range t.seats {
		v := SeatView{Seat: i, State: SeatEmpty}
		if seat != nil {
			v.PlayerID = seat.PlayerID
			v.Name = seat.Name
			v.State = seat.State()
			v.Stack = seat.Stack
			v.Timebank = t.turn.Bank(i)
		}
		if h != nil && seat != nil {
			if p := h.Player(i); p != nil && p.PlayerID == seat.PlayerID {
				v.InHand = t.hand != nil
				v.Folded = p.Folded
				v.AllIn = p.AllIn
				v.Bet = p.Placed
				v.Committed = p.Committed
				if t.hand != nil {
					v.Stack = p.Stack
					u.Holes[p.PlayerID] = slices.Clone(p.Hole)
					if !p.Folded {
						v.HiddenHole = len(p.Hole)
					}
				}
				if hole, ok := shown[i]; ok {
					v.Hole = slices.Clone(hole)
					v.HiddenHole = 0
				}
			}
		}
		s.Seats = append(s.Seats, v)
	}

	u.Snapshot = s
	return u
}
