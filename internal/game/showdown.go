package game

import (
	"errors"
	"fmt"

	"github.com/lox/holdemtables/poker"
)

// PayoutReason explains a payout record.
type PayoutReason string

// Payout reasons. A return hands an uncalled layer back to the only seat
// that funded it.
const (
	ReasonWin    PayoutReason = "win"
	ReasonSplit  PayoutReason = "split"
	ReasonRake   PayoutReason = "rake"
	ReasonReturn PayoutReason = "return"
)

// RakeSeat is the seat recorded on rake payouts.
const RakeSeat = -1

// Payout moves chips from a pot to a seat, or to the house for rake.
type Payout struct {
	Pot    int          `json:"pot"`
	Seat   int          `json:"seat"`
	Amount int          `json:"amount"`
	Reason PayoutReason `json:"reason"`
}

// ShownHand is a hand revealed at showdown.
type ShownHand struct {
	Seat  int          `json:"seat"`
	Hole  []poker.Card `json:"hole"`
	Score poker.Score  `json:"-"`
	Rank  string       `json:"rank"`
}

// Result is the outcome of a paid hand.
type Result struct {
	Pots     []Pot        `json:"pots"`
	Payouts  []Payout     `json:"payouts"`
	Rake     int          `json:"rake"`
	Showdown bool         `json:"showdown"`
	Shown    []ShownHand  `json:"shown,omitempty"`
	Board    []poker.Card `json:"board"`
}

// Won sums what seat received.
func (r *Result) Won(seat int) int {
	total := 0
	for _, p := range r.Payouts {
		if p.Seat == seat {
			total += p.Amount
		}
	}
	return total
}

// Winners lists the seats that won chips, in payout order.
func (r *Result) Winners() []int {
	var out []int
	seen := map[int]bool{}
	for _, p := range r.Payouts {
		if p.Seat == RakeSeat || p.Reason == ReasonReturn || p.Amount == 0 || seen[p.Seat] {
			continue
		}
		seen[p.Seat] = true
		out = append(out, p.Seat)
	}
	return out
}

// awardUncontested gives every pot to the last seat standing. A layer above
// what that seat put in goes back to its sole contributor. Nothing is shown
// and no rake is taken.
func (h *Hand) awardUncontested() error {
	var winner *Player
	for _, p := range h.players {
		if p.InHand() {
			winner = p
		}
	}
	if winner == nil {
		return h.invariant(errors.New("every seat folded"))
	}

	pots := h.Pots()
	res := &Result{Pots: pots, Board: h.Board()}
	for i, pot := range pots {
		if !pot.eligible(winner.Seat) && len(pot.Eligible) == 1 {
			res.Payouts = append(res.Payouts, Payout{Pot: i, Seat: pot.Eligible[0], Amount: pot.Amount, Reason: ReasonReturn})
			continue
		}
		res.Payouts = append(res.Payouts, Payout{Pot: i, Seat: winner.Seat, Amount: pot.Amount, Reason: ReasonWin})
	}
	return h.pay(res)
}

// showdown scores every live hand, splits each pot between its best
// contenders and takes the rake from the first payouts.
func (h *Hand) showdown() error {
	h.street = Showdown

	scores := make(map[int]poker.Score)
	res := &Result{Showdown: true, Board: h.Board()}
	for _, p := range h.players {
		if !p.InHand() {
			continue
		}
		s, err := poker.Evaluate(append(append([]poker.Card(nil), p.Hole...), h.board...)...)
		if err != nil {
			return h.invariant(err)
		}
		scores[p.Seat] = s
		res.Shown = append(res.Shown, ShownHand{Seat: p.Seat, Hole: p.Hole, Score: s, Rank: s.String()})
	}

	pots, err := h.mergeOrphanPots(h.Pots())
	if err != nil {
		return h.invariant(err)
	}
	res.Pots = pots

	order := h.clockwiseFromButton()
	contested := 0
	for i, pot := range pots {
		if pot.contested() {
			contested += pot.Amount
		}

		var best poker.Score
		var winners []int
		for _, seat := range order {
			s, live := scores[seat]
			if !live || !pot.eligible(seat) {
				continue
			}
			switch s.Compare(best) {
			case 1:
				best, winners = s, []int{seat}
			case 0:
				winners = append(winners, seat)
			}
		}

		share, odd := pot.Amount/len(winners), pot.Amount%len(winners)
		reason := ReasonWin
		if len(winners) > 1 {
			reason = ReasonSplit
		}
		for j, seat := range winners {
			amount := share
			if j == 0 {
				amount += odd
			}
			res.Payouts = append(res.Payouts, Payout{Pot: i, Seat: seat, Amount: amount, Reason: reason})
		}
	}

	res.Rake = h.rake(contested)
	owed := res.Rake
	for i := range res.Payouts {
		if owed == 0 {
			break
		}
		take := min(owed, res.Payouts[i].Amount)
		res.Payouts[i].Amount -= take
		owed -= take
	}
	if res.Rake > 0 {
		res.Payouts = append(res.Payouts, Payout{Pot: 0, Seat: RakeSeat, Amount: res.Rake, Reason: ReasonRake})
	}
	return h.pay(res)
}

// rake is floor(contested * bps / 10000), capped.
func (h *Hand) rake(contested int) int {
	r := contested * h.cfg.RakeBasisPoints / 10000
	if h.cfg.RakeCap > 0 && r > h.cfg.RakeCap {
		r = h.cfg.RakeCap
	}
	return r
}

// mergeOrphanPots folds any pot that no live seat may win into the pot
// below it.
func (h *Hand) mergeOrphanPots(pots []Pot) ([]Pot, error) {
	hasLive := func(p Pot) bool {
		for _, seat := range p.Eligible {
			if pl := h.Player(seat); pl != nil && pl.InHand() {
				return true
			}
		}
		return false
	}
	for i := len(pots) - 1; i > 0; i-- {
		if !hasLive(pots[i]) {
			pots[i-1].Amount += pots[i].Amount
			pots = append(pots[:i], pots[i+1:]...)
		}
	}
	if len(pots) > 0 && !hasLive(pots[0]) {
		return nil, errors.New("main pot has no live contender")
	}
	return pots, nil
}

// clockwiseFromButton lists seats starting left of the button. The first
// winner in this order receives any odd chip.
func (h *Hand) clockwiseFromButton() []int {
	out := make([]int, 0, len(h.players))
	for i := 1; i <= len(h.players); i++ {
		out = append(out, h.players[(h.button+i)%len(h.players)].Seat)
	}
	return out
}

// pay credits the payouts, checks chip conservation and closes the hand.
func (h *Hand) pay(res *Result) error {
	paid := 0
	for _, p := range res.Payouts {
		paid += p.Amount
		if p.Seat == RakeSeat {
			continue
		}
		pl := h.Player(p.Seat)
		if pl == nil {
			return h.invariant(fmt.Errorf("payout to unknown seat %d", p.Seat))
		}
		pl.Stack += p.Amount
	}
	if total := h.log.Total(); paid != total {
		return h.invariant(fmt.Errorf("paid %d but pot holds %d", paid, total))
	}

	before, after := 0, res.Rake
	for _, v := range h.start {
		before += v
	}
	for _, p := range h.players {
		after += p.Stack
	}
	if before != after {
		return h.invariant(fmt.Errorf("chips not conserved: %d before, %d after", before, after))
	}

	h.result = res
	h.status = StatusPaid
	h.toAct = -1
	h.ended = h.clock.Now()
	return nil
}
