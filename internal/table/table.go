// Package table runs cash game tables. Each Table owns its seats and the
// hand in progress and executes every command on a single goroutine, so
// joins, actions and timer expiries are strictly ordered.
package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/internal/store"
	"github.com/lox/holdemtables/internal/turnclock"
	"github.com/lox/holdemtables/poker"
)

var (
	ErrTableClosed     = errors.New("table is closed")
	ErrSeatTaken       = errors.New("seat is taken")
	ErrTableFull       = errors.New("table is full")
	ErrBuyInOutOfRange = errors.New("buy-in out of range")
	ErrInvalidSeat     = errors.New("no such seat")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrAlreadySeated   = errors.New("already seated at this table")
	ErrNotSeated       = errors.New("not seated at this table")
	ErrInHand          = errors.New("seat is in a hand")
)

// Options configures a Table.
type Options struct {
	Config    Config
	Store     store.Store
	Publisher Publisher
	Logger    *log.Logger
	Clock     quartz.Clock
	// RNG supplies a generator for each deck shuffle. Defaults to
	// randutil.NewSecure.
	RNG randutil.Source
	// Deck, when set, supplies each hand's deck in place of a shuffle. It
	// replays a known deal.
	Deck func() *poker.Deck

	// Restored state from the store.
	Seats     []store.SeatRecord
	Button    int
	HandCount int

	// OnEmpty is called on the table goroutine when the last player leaves.
	// The table rejects further commands with ErrTableClosed.
	OnEmpty func(*Table)
}

type command struct {
	fn   func(ctx context.Context) error
	errc chan error
}

// Table is a single cash game table.
type Table struct {
	cfg     Config
	store   store.Store
	pub     Publisher
	logger  *log.Logger
	clock   quartz.Clock
	rng     randutil.Source
	deck    func() *poker.Deck
	onEmpty func(*Table)

	cmds chan command
	done chan struct{}

	seats     []*Seat
	button    int
	handCount int
	hand      *game.Hand
	last      *game.Hand
	street    game.Street
	persisted int
	turn      *turnclock.Clock
	nextHand  *quartz.Timer
	events    []Event
	closing   bool
}

// New creates a table. It does nothing until Run is called.
func New(opts Options) (*Table, error) {
	cfg := opts.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("table %s: %w", cfg.ID, err)
	}
	if opts.Store == nil {
		return nil, errors.New("table requires a store")
	}

	t := &Table{
		cfg:       cfg,
		store:     opts.Store,
		pub:       opts.Publisher,
		logger:    opts.Logger,
		clock:     opts.Clock,
		rng:       opts.RNG,
		deck:      opts.Deck,
		onEmpty:   opts.OnEmpty,
		cmds:      make(chan command),
		done:      make(chan struct{}),
		seats:     make([]*Seat, cfg.Seats),
		button:    opts.Button,
		handCount: opts.HandCount,
	}
	if t.logger == nil {
		t.logger = log.New(io.Discard)
	}
	t.logger = t.logger.With("table", cfg.ID)
	if t.clock == nil {
		t.clock = quartz.NewReal()
	}
	if t.rng == nil {
		t.rng = randutil.NewSecure
	}
	if t.button >= cfg.Seats {
		t.button = -1
	}

	t.turn = turnclock.New(t.clock, cfg.TurnTimeout, cfg.Timebank, func(e turnclock.Expiry) {
		t.post(func(ctx context.Context) error {
			t.expire(ctx, e)
			return nil
		})
	})

	for _, r := range opts.Seats {
		if r.Seat < 0 || r.Seat >= cfg.Seats {
			t.logger.Warn("Ignoring stored seat out of range", "seat", r.Seat, "player", r.PlayerID)
			continue
		}
		t.seats[r.Seat] = seatFromRecord(r)
		t.turn.Refill(r.Seat)
	}
	return t, nil
}

// ID returns the table id.
func (t *Table) ID() string { return t.cfg.ID }

// Config returns the table configuration with defaults applied.
func (t *Table) Config() Config { return t.cfg }

// Done is closed when Run returns.
func (t *Table) Done() <-chan struct{} { return t.done }

// Run executes commands until ctx is cancelled. A hand still in progress is
// aborted and its starting stacks restored.
func (t *Table) Run(ctx context.Context) error {
	defer close(t.done)
	defer t.shutdown(context.WithoutCancel(ctx))

	t.logger.Info("Table running", "seats", t.cfg.Seats, "players", t.occupied())
	t.maybeStart(ctx)
	t.publish(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-t.cmds:
			var err error
			if t.closing {
				err = ErrTableClosed
			} else {
				err = c.fn(ctx)
			}
			if c.errc != nil {
				c.errc <- err
			}
		}
	}
}

func (t *Table) shutdown(ctx context.Context) {
	t.closing = true
	if t.nextHand != nil {
		t.nextHand.Stop()
		t.nextHand = nil
	}
	t.turn.Stop()
	if t.hand != nil {
		t.abortHand(ctx, errors.New("table shut down"))
	}
	t.logger.Info("Table stopped")
}

// do runs fn on the table goroutine and waits for its result.
func (t *Table) do(ctx context.Context, fn func(ctx context.Context) error) error {
	c := command{fn: fn, errc: make(chan error, 1)}
	select {
	case t.cmds <- c:
	case <-t.done:
		return ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.errc:
		return err
	case <-t.done:
		select {
		case err := <-c.errc:
			return err
		default:
			return ErrTableClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. Used by timer callbacks.
func (t *Table) post(fn func(ctx context.Context) error) {
	select {
	case t.cmds <- command{fn: fn}:
	case <-t.done:
	}
}

// JoinRequest asks for a seat. Seat -1 takes the lowest free seat.
type JoinRequest struct {
	PlayerID string
	Name     string
	Seat     int
	BuyIn    int
}

// Join seats a player, debiting the buy-in from their account. A player
// joining during a hand is dealt in from the next hand.
func (t *Table) Join(ctx context.Context, req JoinRequest) (int, error) {
	seat := -1
	err := t.do(ctx, func(ctx context.Context) error {
		if req.BuyIn < t.cfg.MinBuyIn || req.BuyIn > t.cfg.MaxBuyIn {
			return fmt.Errorf("%w: %d is not within %d-%d", ErrBuyInOutOfRange, req.BuyIn, t.cfg.MinBuyIn, t.cfg.MaxBuyIn)
		}
		if idx, _ := t.seatOf(req.PlayerID); idx >= 0 {
			return ErrAlreadySeated
		}

		idx := req.Seat
		switch {
		case idx < 0:
			if idx = t.freeSeat(); idx < 0 {
				return ErrTableFull
			}
		case idx >= len(t.seats):
			return fmt.Errorf("%w: %d", ErrInvalidSeat, idx)
		case t.seats[idx] != nil:
			return fmt.Errorf("%w: %d", ErrSeatTaken, idx)
		}

		s := &Seat{PlayerID: req.PlayerID, Name: req.Name, Stack: req.BuyIn}
		if s.Name == "" {
			s.Name = req.PlayerID
		}
		if err := t.store.BuyIn(ctx, s.record(t.cfg.ID, idx), req.BuyIn); err != nil {
			return err
		}
		t.seats[idx] = s
		t.turn.Refill(idx)
		seat = idx

		t.logger.Info("Player seated", "player", req.PlayerID, "seat", idx, "buy_in", req.BuyIn)
		t.emit(Event{Type: EventSeated, Seat: idx, PlayerID: req.PlayerID, Amount: req.BuyIn})
		t.maybeStart(ctx)
		t.publish(ctx)
		return nil
	})
	return seat, err
}

// LeaveResult reports what happened to a leaving player.
type LeaveResult struct {
	Seat int `json:"seat"`
	// CashOut is the stack returned to the account. Zero when deferred.
	CashOut int `json:"cash_out"`
	// Deferred is set when the player is in a hand: they fold when their
	// turn comes and are cashed out when the hand is paid.
	Deferred bool `json:"deferred"`
}

// Leave removes a player from the table and credits their stack back to their
// account, or defers that until the current hand is paid.
func (t *Table) Leave(ctx context.Context, playerID string) (LeaveResult, error) {
	var res LeaveResult
	err := t.do(ctx, func(ctx context.Context) error {
		idx, s := t.seatOf(playerID)
		if s == nil {
			return ErrNotSeated
		}
		res.Seat = idx

		if t.dealtIn(idx) {
			s.leaving = true
			res.Deferred = true
			t.logger.Info("Player leaving after hand", "player", playerID, "seat", idx)
			if t.hand.ToAct() == idx {
				if err := t.apply(ctx, idx, game.Action{Kind: game.Fold}, false); err != nil && !game.IsInvariant(err) {
					return err
				}
			}
			// The fold may have ended the hand and cashed the seat out.
			if t.seats[idx] == nil {
				res.Deferred = false
				res.CashOut, _ = t.leftWith(playerID)
			}
			t.publish(ctx)
			return nil
		}

		amount, err := t.cashOut(ctx, idx)
		if err != nil {
			return err
		}
		res.CashOut = amount
		t.publish(ctx)
		return nil
	})
	return res, err
}

// Rebuy adds chips to a seat between hands. The amount is capped so the stack
// does not exceed the maximum buy-in; the chips actually added are returned.
func (t *Table) Rebuy(ctx context.Context, playerID string, amount int) (int, error) {
	var added int
	err := t.do(ctx, func(ctx context.Context) error {
		idx, s := t.seatOf(playerID)
		switch {
		case s == nil:
			return ErrNotSeated
		case amount <= 0:
			return ErrInvalidAmount
		case t.dealtIn(idx):
			return ErrInHand
		}
		room := t.cfg.MaxBuyIn - s.Stack
		if room <= 0 {
			return fmt.Errorf("%w: stack %d is already at the %d maximum", ErrBuyInOutOfRange, s.Stack, t.cfg.MaxBuyIn)
		}
		add := min(amount, room)

		rec := s.record(t.cfg.ID, idx)
		rec.Stack += add
		if err := t.store.BuyIn(ctx, rec, add); err != nil {
			return err
		}
		s.Stack += add
		added = add

		t.logger.Info("Player rebought", "player", playerID, "seat", idx, "amount", add, "stack", s.Stack)
		t.emit(Event{Type: EventRebuy, Seat: idx, PlayerID: playerID, Amount: add})
		t.maybeStart(ctx)
		t.publish(ctx)
		return nil
	})
	return added, err
}

// SitOut keeps the player's seat but stops dealing them in. A hand in
// progress is played out.
func (t *Table) SitOut(ctx context.Context, playerID string) error {
	return t.setSittingOut(ctx, playerID, true)
}

// SitIn deals the player in again from the next hand.
func (t *Table) SitIn(ctx context.Context, playerID string) error {
	return t.setSittingOut(ctx, playerID, false)
}

func (t *Table) setSittingOut(ctx context.Context, playerID string, out bool) error {
	return t.do(ctx, func(ctx context.Context) error {
		idx, s := t.seatOf(playerID)
		if s == nil {
			return ErrNotSeated
		}
		if s.SittingOut == out {
			return nil
		}
		s.SittingOut = out
		if err := t.store.SaveSeat(ctx, s.record(t.cfg.ID, idx)); err != nil {
			t.logger.Error("Failed to save seat", "seat", idx, "error", err)
		}
		typ := EventSitIn
		if out {
			typ = EventSitOut
		}
		t.emit(Event{Type: typ, Seat: idx, PlayerID: playerID})
		if !out {
			t.maybeStart(ctx)
		}
		t.publish(ctx)
		return nil
	})
}

// ActionRef names the hand and street an action was chosen for. Empty fields
// match whatever is in progress.
type ActionRef struct {
	Hand   string
	Street string
}

// Act applies a player's action. ref must match the hand and street in
// progress where it names them; an action decided for an earlier hand or
// street fails with game.ErrStaleAction. Illegal actions return a
// *game.ActionError and change nothing.
func (t *Table) Act(ctx context.Context, playerID string, ref ActionRef, a game.Action) error {
	return t.do(ctx, func(ctx context.Context) error {
		idx, s := t.seatOf(playerID)
		if s == nil {
			return ErrNotSeated
		}
		if t.hand == nil {
			return &game.ActionError{Seat: idx, Action: a, Reason: game.ErrHandComplete}
		}
		if (ref.Hand != "" && ref.Hand != t.hand.ID()) || (ref.Street != "" && ref.Street != t.hand.Street().String()) {
			return &game.ActionError{Seat: idx, Action: a, Reason: game.ErrStaleAction}
		}
		if err := t.apply(ctx, idx, a, false); err != nil {
			if game.IsInvariant(err) {
				t.publish(ctx)
			}
			return err
		}
		t.publish(ctx)
		return nil
	})
}

// Snapshot returns the table as seen by viewer. An empty viewer gets the
// public view.
func (t *Table) Snapshot(ctx context.Context, viewer string) (Snapshot, error) {
	var s Snapshot
	err := t.do(ctx, func(context.Context) error {
		s = t.update(nil).For(viewer)
		return nil
	})
	return s, err
}

// apply runs an action, or the timeout default when auto is set, and
// advances the table. It does not publish.
func (t *Table) apply(ctx context.Context, seat int, a game.Action, auto bool) error {
	var err error
	if auto {
		err = t.hand.Timeout(seat)
	} else {
		err = t.hand.Apply(seat, a)
	}
	if err != nil {
		if game.IsInvariant(err) {
			t.abortHand(ctx, err)
		}
		return err
	}
	t.turn.Stop()
	t.advance(ctx)
	return nil
}

// advance records what the hand did since the last call and either starts
// the next turn or settles the hand.
func (t *Table) advance(ctx context.Context) {
	h := t.hand
	t.persistLog(ctx)

	board := h.Board()
	for s := t.street + 1; s <= min(h.Street(), game.River); s++ {
		n := 3 + int(s-game.Flop)
		t.emit(Event{Type: EventStreet, Street: s, Board: board[:n]})
	}
	t.street = h.Street()

	switch h.Status() {
	case game.StatusPaid:
		t.finishHand(ctx)
	case game.StatusRunning:
		t.startTurn(ctx)
	}
}

func (t *Table) startTurn(ctx context.Context) {
	seat := t.hand.ToAct()
	if seat < 0 {
		return
	}
	if s := t.seats[seat]; s == nil || s.leaving {
		if err := t.apply(ctx, seat, game.Action{Kind: game.Fold}, false); err != nil && !game.IsInvariant(err) {
			t.logger.Error("Fold for leaving seat rejected", "seat", seat, "error", err)
		}
		return
	}
	t.turn.Start(seat)
}

// expire handles a turn clock expiry on the table goroutine.
func (t *Table) expire(ctx context.Context, e turnclock.Expiry) {
	if t.hand == nil {
		return
	}
	_, before, _ := t.turn.Running()
	if !t.turn.Expired(e) {
		if seat, after, ok := t.turn.Running(); ok && after != before && t.turn.InTimebank() {
			t.logger.Debug("Turn using timebank", "seat", seat, "bank", t.turn.Bank(seat))
			t.emit(Event{Type: EventTimebank, Seat: seat, PlayerID: t.playerAt(seat)})
			t.publish(ctx)
		}
		return
	}

	t.logger.Info("Turn timed out", "seat", e.Seat, "player", t.playerAt(e.Seat), "hand", t.hand.ID())
	if err := t.apply(ctx, e.Seat, game.Action{}, true); err != nil && !game.IsInvariant(err) {
		t.logger.Error("Timeout action rejected", "seat", e.Seat, "error", err)
	}
	t.publish(ctx)
}

// maybeStart deals a new hand when none is running and at least two seats
// can play.
func (t *Table) maybeStart(ctx context.Context) {
	if t.hand != nil || t.nextHand != nil || t.closing {
		return
	}
	var entrants []game.Entrant
	for i, s := range t.seats {
		if s.eligible() {
			entrants = append(entrants, game.Entrant{Seat: i, PlayerID: s.PlayerID, Stack: s.Stack})
		}
	}
	if len(entrants) < 2 {
		return
	}

	button := t.nextButton()
	opts := []game.HandOption{game.WithClock(t.clock)}
	if t.deck != nil {
		opts = append(opts, game.WithDeck(t.deck()))
	} else {
		opts = append(opts, game.WithRNG(t.rng()))
	}
	h, err := game.NewHand(t.cfg.Game(), entrants, button, opts...)
	if err != nil {
		t.logger.Error("Failed to deal hand", "error", err)
		return
	}

	t.button = button
	t.handCount++
	t.hand, t.last = h, nil
	t.street = game.Preflop
	t.persisted = 0

	if err := t.store.StartHand(ctx, t.handRecord(h, store.HandRunning)); err != nil {
		t.logger.Error("Failed to record hand", "hand", h.ID(), "error", err)
	}
	if err := t.store.SetButton(ctx, t.cfg.ID, t.button, t.handCount); err != nil {
		t.logger.Error("Failed to record button", "error", err)
	}

	t.logger.Info("Hand started", "hand", h.ID(), "number", t.handCount, "button", button, "players", len(entrants))
	t.emit(Event{Type: EventHandStarted, Seat: button})
	t.advance(ctx)
}

// nextButton moves the button clockwise to the next seat that is dealt in.
func (t *Table) nextButton() int {
	n := len(t.seats)
	for i := 1; i <= n; i++ {
		idx := ((t.button+i)%n + n) % n
		if t.seats[idx].eligible() {
			return idx
		}
	}
	return -1
}

func (t *Table) finishHand(ctx context.Context) {
	h := t.hand
	res := h.Result()
	t.turn.Stop()

	var seats []store.SeatRecord
	for seat, stack := range h.Stacks() {
		if s := t.seats[seat]; s != nil {
			s.Stack = stack
			seats = append(seats, s.record(t.cfg.ID, seat))
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].Seat < seats[j].Seat })

	payouts := make([]store.PayoutRecord, 0, len(res.Payouts))
	for _, p := range res.Payouts {
		payouts = append(payouts, store.PayoutRecord{HandID: h.ID(), Pot: p.Pot, Seat: p.Seat, Amount: p.Amount, Reason: string(p.Reason)})
	}
	if err := t.store.FinishHand(ctx, t.handRecord(h, store.HandPaid), payouts, seats); err != nil {
		t.logger.Error("Failed to record hand result", "hand", h.ID(), "error", err)
	}

	t.logger.Info("Hand complete", "hand", h.ID(), "pot", h.Log().Total(), "rake", res.Rake, "winners", res.Winners(), "showdown", res.Showdown)
	t.emit(Event{Type: EventHandEnded, Result: res, Summary: t.summarize(h)})
	t.hand, t.last = nil, h
	t.settle(ctx)
}

// abortHand restores every stack to its value before the deal.
func (t *Table) abortHand(ctx context.Context, cause error) {
	h := t.hand
	t.turn.Stop()

	var seats []store.SeatRecord
	for seat, stack := range h.StartingStacks() {
		if s := t.seats[seat]; s != nil {
			s.Stack = stack
			seats = append(seats, s.record(t.cfg.ID, seat))
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].Seat < seats[j].Seat })
	if err := t.store.FinishHand(ctx, t.handRecord(h, store.HandAborted), nil, seats); err != nil {
		t.logger.Error("Failed to record aborted hand", "hand", h.ID(), "error", err)
	}

	t.logger.Error("Hand aborted, stacks restored", "hand", h.ID(), "error", cause)
	t.emit(Event{Type: EventHandAborted, Error: cause.Error()})
	t.hand, t.last = nil, nil
	t.settle(ctx)
}

// settle cashes out players who left during the hand and schedules the next
// deal.
func (t *Table) settle(ctx context.Context) {
	for i, s := range t.seats {
		if s != nil && s.leaving {
			if _, err := t.cashOut(ctx, i); err != nil {
				t.logger.Error("Failed to cash out leaving player", "seat", i, "error", err)
			}
		}
	}
	if t.closing || ctx.Err() != nil {
		return
	}
	t.nextHand = t.clock.AfterFunc(t.cfg.NextHandDelay, func() {
		t.post(func(ctx context.Context) error {
			t.nextHand = nil
			t.maybeStart(ctx)
			if t.hand == nil {
				t.last = nil
			}
			t.publish(ctx)
			return nil
		})
	}, "table", "next-hand")
}

func (t *Table) cashOut(ctx context.Context, idx int) (int, error) {
	s := t.seats[idx]
	amount, err := t.store.CashOut(ctx, t.cfg.ID, idx)
	if err != nil {
		return 0, err
	}
	t.seats[idx] = nil
	t.turn.Forget(idx)

	t.logger.Info("Player left", "player", s.PlayerID, "seat", idx, "cash_out", amount)
	t.emit(Event{Type: EventLeft, Seat: idx, PlayerID: s.PlayerID, Amount: amount})

	if t.occupied() == 0 && t.hand == nil {
		t.release()
	}
	return amount, nil
}

// release closes an empty table and hands it back to its owner.
func (t *Table) release() {
	t.closing = true
	if t.nextHand != nil {
		t.nextHand.Stop()
		t.nextHand = nil
	}
	t.logger.Info("Table empty, releasing")
	if t.onEmpty != nil {
		t.onEmpty(t)
	}
}

func (t *Table) persistLog(ctx context.Context) {
	entries := t.hand.Log().Since(t.persisted)
	if len(entries) == 0 {
		return
	}
	recs := make([]store.ActionRecord, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, store.ActionRecord{
			HandID: t.hand.ID(),
			Seq:    e.Seq,
			Street: e.Street.String(),
			Seat:   e.Seat,
			Kind:   e.Kind.String(),
			Amount: e.Amount,
			Total:  e.Total,
			AllIn:  e.AllIn,
			Auto:   e.Auto,
			At:     e.At,
		})
		t.emit(Event{Type: EventAction, Seat: e.Seat, PlayerID: t.playerAt(e.Seat), Amount: e.Amount, Action: &e})
	}
	if err := t.store.AppendActions(ctx, recs); err != nil {
		t.logger.Error("Failed to record actions", "hand", t.hand.ID(), "error", err)
	}
	t.persisted = entries[len(entries)-1].Seq
}

func (t *Table) publish(ctx context.Context) {
	events := t.drainEvents()
	if t.pub == nil {
		return
	}
	if err := t.pub.Publish(ctx, t.update(events)); err != nil {
		t.logger.Warn("Publish failed", "error", err)
	}
}

func (t *Table) handRecord(h *game.Hand, status string) store.HandRecord {
	rec := store.HandRecord{
		ID:         h.ID(),
		TableID:    t.cfg.ID,
		Number:     t.handCount,
		Button:     h.ButtonSeat(),
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		Board:      poker.FormatCards(h.Board()),
		Pot:        h.Log().Total(),
		Status:     status,
		StartedAt:  h.Started(),
	}
	if r := h.Result(); r != nil {
		rec.Rake = r.Rake
	}
	if status != store.HandRunning {
		end := h.Ended()
		if end.IsZero() {
			end = t.clock.Now()
		}
		rec.EndedAt = &end
	}
	return rec
}

// dealtIn reports whether seat holds cards in the hand in progress.
func (t *Table) dealtIn(seat int) bool {
	return t.hand != nil && t.hand.Player(seat) != nil
}

func (t *Table) seatOf(playerID string) (int, *Seat) {
	for i, s := range t.seats {
		if s != nil && s.PlayerID == playerID {
			return i, s
		}
	}
	return -1, nil
}

func (t *Table) playerAt(seat int) string {
	if seat >= 0 && seat < len(t.seats) && t.seats[seat] != nil {
		return t.seats[seat].PlayerID
	}
	return ""
}

func (t *Table) freeSeat() int {
	for i, s := range t.seats {
		if s == nil {
			return i
		}
	}
	return -1
}

func (t *Table) occupied() int {
	n := 0
	for _, s := range t.seats {
		if s != nil {
			n++
		}
	}
	return n
}
