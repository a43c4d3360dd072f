// Package turnclock times player decisions. Each turn gets a fixed duration;
// when it runs out the seat's timebank is drawn down in chunks of at most one
// turn duration, and only when the bank is empty does the turn time out.
//
// A Clock is owned by a single table goroutine. Timer callbacks never touch
// clock state directly: they hand an Expiry to the fire function, which must
// deliver it back to the owning goroutine (usually by queuing a command), and
// the owner then calls Expired.
package turnclock

import (
	"time"

	"github.com/coder/quartz"
)

// Expiry identifies a timer that fired. Token lets the owner discard expiries
// for turns that have since ended.
type Expiry struct {
	Seat  int
	Token uint64
}

type phase int

const (
	idle phase = iota
	turnPhase
	bankPhase
)

// Clock tracks the running turn and every seat's remaining timebank.
type Clock struct {
	clock quartz.Clock
	turn  time.Duration
	allot time.Duration
	fire  func(Expiry)

	banks map[int]time.Duration

	seat       int
	token      uint64
	phase      phase
	phaseStart time.Time
	phaseLen   time.Duration
	timer      *quartz.Timer
}

// New returns a clock giving each turn the turn duration and each seat a
// timebank of allot once Refill is called for it.
func New(clock quartz.Clock, turn, allot time.Duration, fire func(Expiry)) *Clock {
	return &Clock{
		clock: clock,
		turn:  turn,
		allot: allot,
		fire:  fire,
		banks: make(map[int]time.Duration),
		seat:  -1,
	}
}

// Refill sets seat's timebank to the full allotment.
func (c *Clock) Refill(seat int) {
	c.banks[seat] = c.allot
}

// Forget drops a seat's timebank when it is vacated.
func (c *Clock) Forget(seat int) {
	delete(c.banks, seat)
}

// Bank returns the remaining timebank for seat.
func (c *Clock) Bank(seat int) time.Duration {
	return c.banks[seat]
}

// Start begins a turn for seat, cancelling any running turn.
func (c *Clock) Start(seat int) {
	c.Stop()
	c.seat = seat
	c.arm(turnPhase, c.turn)
}

// Stop ends the running turn because the seat acted. Timebank time used so
// far is deducted.
func (c *Clock) Stop() {
	if c.phase == bankPhase {
		used := c.clock.Since(c.phaseStart)
		c.spend(min(used, c.phaseLen))
	}
	c.disarm()
	c.seat = -1
}

// Expired handles an expiry on the owning goroutine. It reports true when the
// seat is out of time and the default action must be applied. Stale expiries
// return false.
func (c *Clock) Expired(e Expiry) bool {
	if c.phase == idle || e.Token != c.token || e.Seat != c.seat {
		return false
	}
	if c.phase == bankPhase {
		c.spend(c.phaseLen)
	}
	if bank := c.banks[c.seat]; bank > 0 {
		c.arm(bankPhase, min(bank, c.turn))
		return false
	}
	c.disarm()
	c.seat = -1
	return true
}

// Running returns the seat whose turn is being timed and when the current
// phase ends.
func (c *Clock) Running() (seat int, deadline time.Time, ok bool) {
	if c.phase == idle {
		return -1, time.Time{}, false
	}
	return c.seat, c.phaseStart.Add(c.phaseLen), true
}

// InTimebank reports whether the running turn is consuming timebank.
func (c *Clock) InTimebank() bool {
	return c.phase == bankPhase
}

func (c *Clock) arm(p phase, d time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.token++
	c.phase = p
	c.phaseStart = c.clock.Now()
	c.phaseLen = d
	e := Expiry{Seat: c.seat, Token: c.token}
	c.timer = c.clock.AfterFunc(d, func() { c.fire(e) }, "turnclock", p.String())
}

func (c *Clock) disarm() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.token++
	c.phase = idle
}

func (c *Clock) spend(d time.Duration) {
	bank := c.banks[c.seat] - d
	if bank < 0 {
		bank = 0
	}
	c.banks[c.seat] = bank
}

func (p phase) String() string {
	switch p {
	case turnPhase:
		return "turn"
	case bankPhase:
		return "timebank"
	default:
		return "idle"
	}
}
