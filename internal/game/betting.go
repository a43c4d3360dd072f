package game

// Round is the betting state for one street.
type Round struct {
	Street     Street
	CurrentBet int
	// MinRaise is the smallest legal raise increment. It starts each street
	// at the big blind and grows with every full raise.
	MinRaise int
	BigBlind int
	// LastAggressor is the seat that last raised the current bet, or -1.
	LastAggressor int
}

func newRound(street Street, bigBlind int) *Round {
	return &Round{
		Street:        street,
		MinRaise:      bigBlind,
		BigBlind:      bigBlind,
		LastAggressor: -1,
	}
}

// Owed is what p must add to match the current bet.
func (r *Round) Owed(p *Player) int {
	if owed := r.CurrentBet - p.Placed; owed > 0 {
		return owed
	}
	return 0
}

// Legal lists the actions available to p.
func (r *Round) Legal(p *Player) []LegalAction {
	if !p.CanAct() {
		return nil
	}
	owed := r.Owed(p)
	maxTotal := p.Placed + p.Stack

	legal := []LegalAction{{Kind: Fold}}
	if owed == 0 {
		legal = append(legal, LegalAction{Kind: Check})
	} else {
		pay := min(owed, p.Stack)
		legal = append(legal, LegalAction{Kind: Call, Min: pay, Max: pay})
	}

	switch {
	case r.CurrentBet == 0:
		legal = append(legal, LegalAction{Kind: Bet, Min: min(r.BigBlind, maxTotal), Max: maxTotal})
	case !p.RaiseLocked && maxTotal > r.CurrentBet:
		legal = append(legal, LegalAction{Kind: Raise, Min: min(r.CurrentBet+r.MinRaise, maxTotal), Max: maxTotal})
	}

	if !p.RaiseLocked || maxTotal <= r.CurrentBet {
		legal = append(legal, LegalAction{Kind: AllIn, Min: maxTotal, Max: maxTotal})
	}
	return legal
}

// apply validates a and, if legal, moves chips and updates round state. It
// returns the log entry describing the result without a sequence number. On
// error nothing is modified.
func (r *Round) apply(p *Player, a Action, players []*Player) (LogEntry, error) {
	owed := r.Owed(p)
	maxTotal := p.Placed + p.Stack
	entry := LogEntry{Street: r.Street, Seat: p.Seat, Kind: a.Kind}

	switch a.Kind {
	case Fold:
		p.Folded = true
		entry.Total = p.Placed
		return entry, nil

	case Check:
		if owed > 0 {
			return entry, illegal(p.Seat, a, ErrCannotCheck)
		}

	case Call:
		if owed == 0 {
			return entry, illegal(p.Seat, a, ErrNothingToCall)
		}
		entry.Amount = min(owed, p.Stack)

	case Bet:
		if r.CurrentBet > 0 {
			return entry, illegal(p.Seat, a, ErrBetNotAllowed)
		}
		if a.Amount > maxTotal {
			return entry, illegal(p.Seat, a, ErrInsufficientChips)
		}
		if a.Amount <= 0 || (a.Amount < r.BigBlind && a.Amount != maxTotal) {
			return entry, illegal(p.Seat, a, ErrBetTooSmall)
		}
		entry.Amount = a.Amount - p.Placed

	case Raise:
		if r.CurrentBet == 0 || p.RaiseLocked {
			return entry, illegal(p.Seat, a, ErrRaiseNotAllowed)
		}
		if a.Amount > maxTotal {
			return entry, illegal(p.Seat, a, ErrInsufficientChips)
		}
		if a.Amount <= r.CurrentBet || (a.Amount-r.CurrentBet < r.MinRaise && a.Amount != maxTotal) {
			return entry, illegal(p.Seat, a, ErrRaiseTooSmall)
		}
		entry.Amount = a.Amount - p.Placed

	case AllIn:
		if p.Stack == 0 {
			return entry, illegal(p.Seat, a, ErrInsufficientChips)
		}
		if p.RaiseLocked && maxTotal > r.CurrentBet {
			return entry, illegal(p.Seat, a, ErrRaiseNotAllowed)
		}
		entry.Amount = p.Stack
		switch {
		case maxTotal <= r.CurrentBet:
			entry.Kind = Call
		case r.CurrentBet == 0:
			entry.Kind = Bet
		default:
			entry.Kind = Raise
		}

	default:
		return entry, illegal(p.Seat, a, ErrUnknownAction)
	}

	p.commit(entry.Amount)
	p.Acted = true
	entry.Total = p.Placed
	entry.AllIn = p.AllIn
	if p.Placed > r.CurrentBet {
		r.raiseTo(p, players)
	}
	return entry, nil
}

// raiseTo makes p's street total the new current bet. A full raise sets the
// new minimum raise and unlocks everyone; a short all-in raise only forces
// the others to respond.
func (r *Round) raiseTo(p *Player, players []*Player) {
	prev := r.CurrentBet
	increment := p.Placed - prev
	full := increment >= r.MinRaise
	if full {
		r.MinRaise = increment
	}
	r.CurrentBet = p.Placed
	r.LastAggressor = p.Seat

	for _, q := range players {
		if q == p || !q.CanAct() {
			continue
		}
		if full {
			q.RaiseLocked = false
		} else if q.Acted && q.Placed == prev {
			q.RaiseLocked = true
		}
		q.Acted = false
	}
}

// postBlind moves a forced bet. Posting does not count as acting, which is
// what gives the big blind its option.
func (r *Round) postBlind(p *Player, kind ActionKind, amount int) LogEntry {
	pay := min(amount, p.Stack)
	p.commit(pay)
	if p.Placed > r.CurrentBet {
		r.CurrentBet = p.Placed
	}
	return LogEntry{Street: r.Street, Seat: p.Seat, Kind: kind, Amount: pay, Total: p.Placed, AllIn: p.AllIn}
}

// needsAction reports whether p must still act this street.
func (r *Round) needsAction(p *Player) bool {
	return p.CanAct() && (!p.Acted || p.Placed < r.CurrentBet)
}

// Complete reports whether the street's betting is over: one seat left,
// nobody able to act, a lone actor already matching the bet, or every actor
// having acted and matched.
func (r *Round) Complete(players []*Player) bool {
	live, actors := 0, 0
	var lone *Player
	for _, p := range players {
		if p.InHand() {
			live++
		}
		if p.CanAct() {
			actors++
			lone = p
		}
	}
	if live <= 1 || actors == 0 {
		return true
	}
	if actors == 1 && lone.Placed >= r.CurrentBet {
		return true
	}
	for _, p := range players {
		if r.needsAction(p) {
			return false
		}
	}
	return true
}
