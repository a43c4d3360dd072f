// Package game implements the Texas Hold'em hand engine for cash tables.
//
// The main type is Hand, which runs one hand from blinds to payout: it deals
// from a shuffled deck, drives the betting round for each street, keeps an
// append-only ActionLog and resolves the pots at showdown. A Hand is not safe
// for concurrent use; the table runtime owns it from a single goroutine.
//
// # Basic Usage
//
//	h, err := game.NewHand(game.Config{SmallBlind: 10, BigBlind: 20},
//	    []game.Entrant{{Seat: 0, Stack: 1000}, {Seat: 3, Stack: 1000}},
//	    0, game.WithRNG(randutil.New(42)))
//	if err != nil {
//	    return err
//	}
//	err = h.Apply(h.ToAct(), game.Action{Kind: game.Call})
//	if h.Status() == game.StatusPaid {
//	    result := h.Result()
//	}
//
// Amounts for Bet and Raise are street totals ("raise to"), never increments.
//
// # Side Pots
//
// Pots are never patched incrementally. BuildPots derives them from the
// per-seat contributions in the ActionLog every time they are needed, so a
// late all-in cannot leave the pot structure inconsistent.
package game
