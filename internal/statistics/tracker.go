package statistics

import (
	"context"
	"sync"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/table"
)

// Tracker accumulates statistics from paid hands. It is a table.Publisher.
type Tracker struct {
	mu     sync.RWMutex
	tables map[string]map[string]*entry
}

type entry struct {
	name  string
	stats *Statistics
}

var _ table.Publisher = (*Tracker)(nil)

func NewTracker() *Tracker {
	return &Tracker{tables: map[string]map[string]*entry{}}
}

func (t *Tracker) Publish(_ context.Context, u table.Update) error {
	for _, e := range u.Snapshot.Events {
		if e.Type == table.EventHandEnded && e.Summary != nil {
			t.Record(e.Summary)
		}
	}
	return nil
}

// Record adds every dealt-in player's result from a hand.
func (t *Tracker) Record(sum *table.HandSummary) {
	if sum.BigBlind <= 0 {
		return
	}
	bb := float64(sum.BigBlind)

	pot := 0
	shown := map[int]bool{}
	if sum.Result != nil {
		pot = game.PotTotal(sum.Result.Pots)
		for _, sh := range sum.Result.Shown {
			shown[sh.Seat] = true
		}
	}

	voluntary := map[int]bool{}
	raised := map[int]bool{}
	for _, a := range sum.Actions {
		if a.Street != game.Preflop {
			continue
		}
		switch a.Kind {
		case game.Call:
			voluntary[a.Seat] = true
		case game.Bet, game.Raise:
			voluntary[a.Seat] = true
			raised[a.Seat] = true
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	players := t.tables[sum.TableID]
	if players == nil {
		players = map[string]*entry{}
		t.tables[sum.TableID] = players
	}
	for _, p := range sum.Players {
		e := players[p.PlayerID]
		if e == nil {
			e = &entry{stats: &Statistics{}}
			players[p.PlayerID] = e
		}
		if p.Name != "" {
			e.name = p.Name
		}
		e.stats.Add(HandResult{
			NetBB:          float64(p.End-p.Start) / bb,
			Position:       (p.Seat - sum.Button + sum.Seats) % sum.Seats,
			WentToShowdown: shown[p.Seat],
			FinalPotSize:   pot,
			PotBB:          float64(pot) / bb,
			Voluntary:      voluntary[p.Seat],
			Raised:         raised[p.Seat],
		})
	}
}

// Table returns summaries for everyone who played at tableID, biggest
// winner first.
func (t *Tracker) Table(tableID string) []Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Summary, 0, len(t.tables[tableID]))
	for id, e := range t.tables[tableID] {
		out = append(out, summarize(id, e.name, e.stats.clone()))
	}
	sortSummaries(out)
	return out
}

// Player returns one player's summary at tableID.
func (t *Tracker) Player(tableID, playerID string) (Summary, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.tables[tableID][playerID]
	if !ok {
		return Summary{}, false
	}
	return summarize(playerID, e.name, e.stats.clone()), true
}
