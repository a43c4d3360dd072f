package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/holdemtables/internal/gameid"
	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/poker"
)

// Config holds the stakes and rake for a hand.
type Config struct {
	SmallBlind int
	BigBlind   int
	// RakeBasisPoints is the rake rate in hundredths of a percent (500 = 5%).
	RakeBasisPoints int
	// RakeCap limits the rake per hand. Zero means no cap.
	RakeCap int
}

// Validate checks the stakes.
func (c Config) Validate() error {
	switch {
	case c.SmallBlind < 1:
		return errors.New("small blind must be at least 1")
	case c.BigBlind <= c.SmallBlind:
		return errors.New("big blind must be greater than small blind")
	case c.RakeBasisPoints < 0 || c.RakeBasisPoints > 10000:
		return errors.New("rake must be between 0 and 10000 basis points")
	case c.RakeCap < 0:
		return errors.New("rake cap must not be negative")
	}
	return nil
}

// Status of a hand.
type Status int

const (
	StatusRunning Status = iota
	StatusPaid
	StatusAborted
)

func (s Status) String() string {
	return [...]string{"running", "paid", "aborted"}[s]
}

// HandOption configures a Hand during creation.
type HandOption func(*handOptions)

type handOptions struct {
	rng   *rand.Rand
	deck  *poker.Deck
	clock quartz.Clock
	id    string
}

// WithRNG shuffles the deck with rng instead of a crypto-seeded generator.
func WithRNG(rng *rand.Rand) HandOption {
	return func(o *handOptions) { o.rng = rng }
}

// WithDeck uses a prepared deck, typically poker.NewStackedDeck in tests.
func WithDeck(d *poker.Deck) HandOption {
	return func(o *handOptions) { o.deck = d }
}

// WithClock sets the clock used to timestamp log entries.
func WithClock(c quartz.Clock) HandOption {
	return func(o *handOptions) { o.clock = c }
}

// WithID overrides the generated hand id.
func WithID(id string) HandOption {
	return func(o *handOptions) { o.id = id }
}

// Hand runs a single hand of Texas Hold'em.
type Hand struct {
	id     string
	cfg    Config
	clock  quartz.Clock
	deck   *poker.Deck
	log    ActionLog
	round  *Round
	status Status

	players []*Player // ordered by seat index
	start   map[int]int

	button, smallBlind, bigBlind int // positions in players
	toAct                        int // position in players, -1 when nobody

	street  Street
	board   []poker.Card
	result  *Result
	started time.Time
	ended   time.Time
}

// NewHand deals a new hand: it posts the blinds, deals two hole cards to
// every entrant and sets the first seat to act. button must be the seat
// index of one of the entrants.
func NewHand(cfg Config, entrants []Entrant, button int, opts ...HandOption) (*Hand, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(entrants) < 2 {
		return nil, errors.New("at least 2 players required")
	}

	o := handOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = quartz.NewReal()
	}
	if o.deck == nil {
		if o.rng == nil {
			o.rng = randutil.NewSecure()
		}
		o.deck = poker.NewDeck(o.rng)
	}
	if o.id == "" {
		o.id = gameid.Generate()
	}

	h := &Hand{
		id:      o.id,
		cfg:     cfg,
		clock:   o.clock,
		deck:    o.deck,
		start:   make(map[int]int, len(entrants)),
		button:  -1,
		toAct:   -1,
		started: o.clock.Now(),
	}

	sorted := append([]Entrant(nil), entrants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seat < sorted[j].Seat })
	for i, e := range sorted {
		if e.Stack <= 0 {
			return nil, fmt.Errorf("seat %d has no chips", e.Seat)
		}
		if i > 0 && sorted[i-1].Seat == e.Seat {
			return nil, fmt.Errorf("seat %d dealt twice", e.Seat)
		}
		if e.Seat == button {
			h.button = i
		}
		h.players = append(h.players, &Player{Seat: e.Seat, PlayerID: e.PlayerID, Stack: e.Stack})
		h.start[e.Seat] = e.Stack
	}
	if h.button < 0 {
		return nil, fmt.Errorf("button seat %d is not dealt in", button)
	}

	// Heads-up the button posts the small blind and acts first preflop.
	if len(h.players) == 2 {
		h.smallBlind = h.button
	} else {
		h.smallBlind = h.next(h.button)
	}
	h.bigBlind = h.next(h.smallBlind)

	if err := h.dealHoleCards(); err != nil {
		return nil, err
	}

	h.round = newRound(Preflop, cfg.BigBlind)
	h.record(h.round.postBlind(h.players[h.smallBlind], PostSmallBlind, cfg.SmallBlind))
	h.record(h.round.postBlind(h.players[h.bigBlind], PostBigBlind, cfg.BigBlind))
	h.round.CurrentBet = cfg.BigBlind

	h.toAct = h.nextNeedingAction(h.bigBlind)
	if err := h.progress(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hand) dealHoleCards() error {
	first := h.next(h.button)
	for range 2 {
		for i := range h.players {
			p := h.players[(first+i)%len(h.players)]
			c, err := h.deck.Draw()
			if err != nil {
				return h.invariant(err)
			}
			p.Hole = append(p.Hole, c)
		}
	}
	return nil
}

// Apply processes an action from seat. Illegal actions return an
// *ActionError and leave the hand unchanged. An *InvariantError aborts the
// hand.
func (h *Hand) Apply(seat int, a Action) error {
	return h.apply(seat, a, false)
}

// Timeout applies the default action for seat: check when nothing is owed,
// otherwise fold.
func (h *Hand) Timeout(seat int) error {
	a := Action{Kind: Fold}
	if p := h.Player(seat); p != nil && h.round.Owed(p) == 0 {
		a.Kind = Check
	}
	return h.apply(seat, a, true)
}

func (h *Hand) apply(seat int, a Action, auto bool) error {
	if h.status != StatusRunning {
		return illegal(seat, a, ErrHandComplete)
	}
	pos := h.position(seat)
	if pos < 0 {
		return illegal(seat, a, ErrUnknownSeat)
	}
	if pos != h.toAct {
		return illegal(seat, a, ErrNotYourTurn)
	}

	entry, err := h.round.apply(h.players[pos], a, h.players)
	if err != nil {
		return err
	}
	entry.Auto = auto
	h.record(entry)

	if h.players[pos].Stack < 0 {
		return h.invariant(fmt.Errorf("seat %d stack went negative", seat))
	}

	h.toAct = h.nextNeedingAction(pos)
	return h.progress()
}

// progress advances streets until someone has to act or the hand is paid.
func (h *Hand) progress() error {
	for {
		if h.liveCount() <= 1 {
			return h.awardUncontested()
		}
		if !h.round.Complete(h.players) {
			if h.toAct < 0 {
				return h.invariant(errors.New("betting incomplete but nobody to act"))
			}
			return nil
		}
		if h.street == River {
			return h.showdown()
		}
		if err := h.nextStreet(); err != nil {
			return err
		}
	}
}

func (h *Hand) nextStreet() error {
	n := 1
	if h.street == Preflop {
		n = 3
	}
	cards, err := h.deck.DrawN(n)
	if err != nil {
		return h.invariant(err)
	}
	h.board = append(h.board, cards...)
	h.street++

	h.round = newRound(h.street, h.cfg.BigBlind)
	for _, p := range h.players {
		p.Placed = 0
		p.Acted = false
		p.RaiseLocked = false
	}
	h.toAct = h.nextNeedingAction(h.button)
	return nil
}

func (h *Hand) record(e LogEntry) {
	e.At = h.clock.Now()
	h.log.Append(e)
}

func (h *Hand) invariant(err error) error {
	h.status = StatusAborted
	h.toAct = -1
	h.ended = h.clock.Now()
	return &InvariantError{HandID: h.id, Err: err}
}

func (h *Hand) next(pos int) int {
	return (pos + 1) % len(h.players)
}

// nextNeedingAction walks clockwise from pos (exclusive) to the first seat
// that still has to act this street.
func (h *Hand) nextNeedingAction(pos int) int {
	for i := 1; i <= len(h.players); i++ {
		q := (pos + i) % len(h.players)
		if h.round.needsAction(h.players[q]) {
			return q
		}
	}
	return -1
}

func (h *Hand) position(seat int) int {
	for i, p := range h.players {
		if p.Seat == seat {
			return i
		}
	}
	return -1
}

func (h *Hand) liveCount() int {
	n := 0
	for _, p := range h.players {
		if p.InHand() {
			n++
		}
	}
	return n
}

// ID returns the hand id.
func (h *Hand) ID() string { return h.id }

func (h *Hand) Config() Config { return h.cfg }
func (h *Hand) Status() Status { return h.status }
func (h *Hand) Street() Street { return h.street }
func (h *Hand) Result() *Result { return h.result }
func (h *Hand) Log() *ActionLog { return &h.log }
func (h *Hand) Round() Round { return *h.round }
func (h *Hand) Started() time.Time { return h.started }
func (h *Hand) Ended() time.Time { return h.ended }

// Board returns the community cards dealt so far.
func (h *Hand) Board() []poker.Card {
	return append([]poker.Card(nil), h.board...)
}

// Players returns the seats dealt into the hand in seat order. Callers must
// not modify them.
func (h *Hand) Players() []*Player { return h.players }

// Player returns the hand state for seat, or nil.
func (h *Hand) Player(seat int) *Player {
	if pos := h.position(seat); pos >= 0 {
		return h.players[pos]
	}
	return nil
}

func (h *Hand) ButtonSeat() int { return h.players[h.button].Seat }
func (h *Hand) SmallBlindSeat() int { return h.players[h.smallBlind].Seat }
func (h *Hand) BigBlindSeat() int { return h.players[h.bigBlind].Seat }

// ToAct returns the seat whose turn it is, or -1.
func (h *Hand) ToAct() int {
	if h.status != StatusRunning || h.toAct < 0 {
		return -1
	}
	return h.players[h.toAct].Seat
}

// Legal returns the legal actions for seat, empty unless it is seat's turn.
func (h *Hand) Legal(seat int) []LegalAction {
	if seat < 0 || seat != h.ToAct() {
		return nil
	}
	return h.round.Legal(h.Player(seat))
}

// Pots recomputes the pot structure from the action log.
func (h *Hand) Pots() []Pot {
	return BuildPots(h.log.Contributions())
}

// StartingStacks returns the stacks each seat brought into the hand. They are
// restored if the hand is aborted.
func (h *Hand) StartingStacks() map[int]int {
	out := make(map[int]int, len(h.start))
	for k, v := range h.start {
		out[k] = v
	}
	return out
}

// Stacks returns the current stack of every seat in the hand.
func (h *Hand) Stacks() map[int]int {
	out := make(map[int]int, len(h.players))
	for _, p := range h.players {
		out[p.Seat] = p.Stack
	}
	return out
}
