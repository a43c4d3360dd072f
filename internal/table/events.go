package table

import (
	"slices"
	"time"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/poker"
)

// EventType names something that happened at a table.
type EventType string

const (
	EventSeated      EventType = "seated"
	EventLeft        EventType = "left"
	EventRebuy       EventType = "rebuy"
	EventSitOut      EventType = "sit_out"
	EventSitIn       EventType = "sit_in"
	EventHandStarted EventType = "hand_started"
	EventAction      EventType = "action"
	EventStreet      EventType = "street"
	EventTimebank    EventType = "timebank"
	EventHandEnded   EventType = "hand_ended"
	EventHandAborted EventType = "hand_aborted"
)

// Event is published with the snapshot that follows it.
type Event struct {
	Type     EventType      `json:"type"`
	At       time.Time      `json:"at"`
	HandID   string         `json:"hand_id,omitempty"`
	Seat     int            `json:"seat"`
	PlayerID string         `json:"player_id,omitempty"`
	Amount   int            `json:"amount,omitempty"`
	Street   game.Street    `json:"street,omitempty"`
	Board    []poker.Card   `json:"board,omitempty"`
	Action   *game.LogEntry `json:"action,omitempty"`
	Result   *game.Result   `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`

	// Summary is set on hand_ended. It holds every hole card so it is
	// never serialized with the event.
	Summary *HandSummary `json:"-"`
}

// HandSummary is the full record of a paid hand.
type HandSummary struct {
	TableID    string
	TableName  string
	HandID     string
	Number     int
	SmallBlind int
	BigBlind   int
	Button     int
	SmallSeat  int
	BigSeat    int
	Seats      int
	Players    []HandPlayer
	Actions    []game.LogEntry
	Board      []poker.Card
	Result     *game.Result
	Started    time.Time
	Ended      time.Time
}

// HandPlayer is one dealt-in seat of a HandSummary.
type HandPlayer struct {
	Seat     int
	PlayerID string
	Name     string
	Hole     []poker.Card
	Start    int
	End      int
}

func (t *Table) summarize(h *game.Hand) *HandSummary {
	start, end := h.StartingStacks(), h.Stacks()
	sum := &HandSummary{
		TableID:    t.cfg.ID,
		TableName:  t.cfg.Name,
		HandID:     h.ID(),
		Number:     t.handCount,
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		Button:     h.ButtonSeat(),
		SmallSeat:  h.SmallBlindSeat(),
		BigSeat:    h.BigBlindSeat(),
		Seats:      len(t.seats),
		Actions:    slices.Clone(h.Log().Entries()),
		Board:      h.Board(),
		Result:     h.Result(),
		Started:    h.Started(),
		Ended:      h.Ended(),
	}
	for _, p := range h.Players() {
		hp := HandPlayer{
			Seat:     p.Seat,
			PlayerID: p.PlayerID,
			Hole:     slices.Clone(p.Hole),
			Start:    start[p.Seat],
			End:      end[p.Seat],
		}
		if s := t.seats[p.Seat]; s != nil && s.PlayerID == p.PlayerID {
			hp.Name = s.Name
		}
		sum.Players = append(sum.Players, hp)
	}
	return sum
}

func (t *Table) emit(e Event) {
	e.At = t.clock.Now()
	if e.HandID == "" && t.hand != nil {
		e.HandID = t.hand.ID()
	}
	t.events = append(t.events, e)
}

func (t *Table) drainEvents() []Event {
	out := t.events
	t.events = nil
	return out
}

// leftWith returns the cash-out of a leave event not yet published for
// playerID.
func (t *Table) leftWith(playerID string) (int, bool) {
	for i := len(t.events) - 1; i >= 0; i-- {
		if e := t.events[i]; e.Type == EventLeft && e.PlayerID == playerID {
			return e.Amount, true
		}
	}
	return 0, false
}
