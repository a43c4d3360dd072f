package phh

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/table"
	"github.com/lox/holdemtables/poker"
)

// FromSummary builds the PHH record of a paid hand. Players are numbered
// from the small blind clockwise, as PHH expects.
func FromSummary(sum *table.HandSummary) *HandHistory {
	players := make([]table.HandPlayer, len(sum.Players))
	copy(players, sum.Players)
	seats := max(sum.Seats, 1)
	sort.Slice(players, func(i, j int) bool {
		return (players[i].Seat-sum.SmallSeat+seats)%seats < (players[j].Seat-sum.SmallSeat+seats)%seats
	})

	n := len(players)
	index := make(map[int]int, n)
	hh := &HandHistory{
		Variant:           "NT",
		Table:             sum.TableName,
		SeatCount:         sum.Seats,
		Seats:             make([]int, n),
		Antes:             make([]int, n),
		BlindsOrStraddles: make([]int, n),
		MinBet:            sum.BigBlind,
		StartingStacks:    make([]int, n),
		FinishingStacks:   make([]int, n),
		Winnings:          make([]int, n),
		Players:           make([]string, n),
		HandID:            sum.HandID,
		TableID:           sum.TableID,
		HandNumber:        sum.Number,
		Timestamp:         sum.Started.UTC(),
	}
	for i, p := range players {
		index[p.Seat] = i
		hh.Seats[i] = p.Seat + 1
		hh.StartingStacks[i] = p.Start
		hh.FinishingStacks[i] = p.End
		hh.Players[i] = p.Name
		if hh.Players[i] == "" {
			hh.Players[i] = p.PlayerID
		}
	}

	if res := sum.Result; res != nil {
		hh.Rake = res.Rake
		for _, pay := range res.Payouts {
			if i, ok := index[pay.Seat]; ok && pay.Seat != game.RakeSeat {
				hh.Winnings[i] += pay.Amount
			}
		}
	}

	for i, p := range players {
		hh.Actions = append(hh.Actions, fmt.Sprintf("d dh p%d %s", i+1, cards(p.Hole)))
	}

	dealt := 0
	deal := func(upTo game.Street) {
		want := boardLen(upTo)
		for dealt < want && dealt < len(sum.Board) {
			next := boardLen(streetAfter(dealt))
			next = min(next, len(sum.Board))
			hh.Actions = append(hh.Actions, "d db "+cards(sum.Board[dealt:next]))
			dealt = next
		}
	}
	for _, e := range sum.Actions {
		switch e.Kind {
		case game.PostSmallBlind, game.PostBigBlind:
			if i, ok := index[e.Seat]; ok {
				hh.BlindsOrStraddles[i] = e.Amount
			}
			continue
		}
		deal(e.Street)
		if i, ok := index[e.Seat]; ok {
			if a, emit := FormatAction(i+1, e); emit {
				hh.Actions = append(hh.Actions, a)
			}
		}
	}
	deal(game.River)

	if res := sum.Result; res != nil {
		for _, sh := range res.Shown {
			if i, ok := index[sh.Seat]; ok {
				hh.Actions = append(hh.Actions, fmt.Sprintf("p%d sm %s", i+1, cards(sh.Hole)))
			}
		}
	}

	if !sum.Started.IsZero() {
		t := sum.Started.UTC()
		hh.Time = t.Format(time.TimeOnly)
		hh.TimeZone = "UTC"
		hh.Day, hh.Month, hh.Year = t.Day(), int(t.Month()), t.Year()
	}
	return hh
}

// boardLen is the number of community cards out once street is reached.
func boardLen(s game.Street) int {
	switch s {
	case game.Preflop:
		return 0
	case game.Flop:
		return 3
	case game.Turn:
		return 4
	}
	return 5
}

// streetAfter returns the street that deals the card after the first n.
func streetAfter(n int) game.Street {
	switch {
	case n < 3:
		return game.Flop
	case n < 4:
		return game.Turn
	}
	return game.River
}

func cards(cs []poker.Card) string {
	var b strings.Builder
	for _, c := range cs {
		b.WriteString(c.String())
	}
	return b.String()
}
