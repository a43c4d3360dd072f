package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func players(stacks ...int) []*Player {
	out := make([]*Player, len(stacks))
	for i, s := range stacks {
		out[i] = &Player{Seat: i, Stack: s}
	}
	return out
}

func TestRoundBetValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stack   int
		action  Action
		wantErr error
	}{
		{"bet at big blind", 1000, Action{Kind: Bet, Amount: 20}, nil},
		{"bet below big blind", 1000, Action{Kind: Bet, Amount: 15}, ErrBetTooSmall},
		{"short all-in bet", 15, Action{Kind: Bet, Amount: 15}, nil},
		{"bet above stack", 100, Action{Kind: Bet, Amount: 150}, ErrInsufficientChips},
		{"zero bet", 100, Action{Kind: Bet}, ErrBetTooSmall},
		{"raise with no bet", 1000, Action{Kind: Raise, Amount: 40}, ErrRaiseNotAllowed},
		{"call with no bet", 1000, Action{Kind: Call}, ErrNothingToCall},
		{"check", 1000, Action{Kind: Check}, nil},
		{"unknown", 1000, Action{Kind: PostBigBlind}, ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ps := players(tt.stack, 1000)
			r := newRound(Flop, 20)
			_, err := r.apply(ps[0], tt.action, ps)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.stack, ps[0].Stack, "rejected action must not move chips")
				assert.False(t, ps[0].Acted)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRoundRaiseSizing(t *testing.T) {
	t.Parallel()
	ps := players(1000, 1000, 1000)
	r := newRound(Flop, 20)

	_, err := r.apply(ps[0], Action{Kind: Bet, Amount: 50}, ps)
	require.NoError(t, err)
	assert.Equal(t, 50, r.CurrentBet)
	assert.Equal(t, 50, r.MinRaise)

	_, err = r.apply(ps[1], Action{Kind: Raise, Amount: 90}, ps)
	require.ErrorIs(t, err, ErrRaiseTooSmall)

	_, err = r.apply(ps[1], Action{Kind: Raise, Amount: 50}, ps)
	require.ErrorIs(t, err, ErrRaiseTooSmall)

	_, err = r.apply(ps[1], Action{Kind: Bet, Amount: 100}, ps)
	require.ErrorIs(t, err, ErrBetNotAllowed)

	_, err = r.apply(ps[1], Action{Kind: Check}, ps)
	require.ErrorIs(t, err, ErrCannotCheck)

	e, err := r.apply(ps[1], Action{Kind: Raise, Amount: 130}, ps)
	require.NoError(t, err)
	assert.Equal(t, 130, e.Total)
	assert.Equal(t, 130, e.Amount)
	assert.Equal(t, 80, r.MinRaise)
	assert.Equal(t, 1, r.LastAggressor)
	assert.False(t, ps[0].Acted, "raise must reopen action for the bettor")
}

func TestRoundShortAllInDoesNotReopen(t *testing.T) {
	t.Parallel()
	ps := players(1000, 1000, 130)
	r := newRound(Flop, 20)

	_, err := r.apply(ps[0], Action{Kind: Bet, Amount: 100}, ps)
	require.NoError(t, err)
	_, err = r.apply(ps[1], Action{Kind: Call}, ps)
	require.NoError(t, err)

	e, err := r.apply(ps[2], Action{Kind: AllIn}, ps)
	require.NoError(t, err)
	assert.Equal(t, Raise, e.Kind)
	assert.True(t, e.AllIn)
	assert.Equal(t, 130, r.CurrentBet)
	assert.Equal(t, 100, r.MinRaise, "short raise keeps the previous minimum")

	for _, p := range ps[:2] {
		assert.False(t, p.Acted, "seat %d must respond to the extra chips", p.Seat)
		assert.True(t, p.RaiseLocked, "seat %d already matched and may not re-raise", p.Seat)
		kinds := []ActionKind{}
		for _, la := range r.Legal(p) {
			kinds = append(kinds, la.Kind)
		}
		assert.Equal(t, []ActionKind{Fold, Call}, kinds)
	}

	_, err = r.apply(ps[0], Action{Kind: Raise, Amount: 300}, ps)
	require.ErrorIs(t, err, ErrRaiseNotAllowed)
	_, err = r.apply(ps[0], Action{Kind: AllIn}, ps)
	require.ErrorIs(t, err, ErrRaiseNotAllowed)

	_, err = r.apply(ps[0], Action{Kind: Call}, ps)
	require.NoError(t, err)
	_, err = r.apply(ps[1], Action{Kind: Call}, ps)
	require.NoError(t, err)
	assert.True(t, r.Complete(ps))
}

func TestRoundAllInClassification(t *testing.T) {
	t.Parallel()
	ps := players(50, 30, 500)
	r := newRound(Turn, 20)

	e, err := r.apply(ps[0], Action{Kind: AllIn}, ps)
	require.NoError(t, err)
	assert.Equal(t, Bet, e.Kind)

	e, err = r.apply(ps[1], Action{Kind: AllIn}, ps)
	require.NoError(t, err)
	assert.Equal(t, Call, e.Kind)
	assert.Equal(t, 30, e.Total)
	assert.Equal(t, 50, r.CurrentBet)

	_, err = r.apply(ps[2], Action{Kind: Call}, ps)
	require.NoError(t, err)
	assert.True(t, r.Complete(ps))
}

func TestRoundLegalActions(t *testing.T) {
	t.Parallel()
	ps := players(1000, 1000)
	r := newRound(Flop, 20)

	assert.Equal(t, []LegalAction{
		{Kind: Fold},
		{Kind: Check},
		{Kind: Bet, Min: 20, Max: 1000},
		{Kind: AllIn, Min: 1000, Max: 1000},
	}, r.Legal(ps[0]))

	_, err := r.apply(ps[0], Action{Kind: Bet, Amount: 60}, ps)
	require.NoError(t, err)

	legal := r.Legal(ps[1])
	assert.Equal(t, []LegalAction{
		{Kind: Fold},
		{Kind: Call, Min: 60, Max: 60},
		{Kind: Raise, Min: 120, Max: 1000},
		{Kind: AllIn, Min: 1000, Max: 1000},
	}, legal)

	bar := NewActionBar(legal)
	assert.Equal(t, 60, bar.CallAmount)
	assert.Equal(t, 120, bar.MinRaiseTo)
	assert.False(t, bar.CanCheck)
	assert.True(t, bar.CanRaise)
}

func TestRoundCompleteLoneActor(t *testing.T) {
	t.Parallel()
	ps := players(0, 500)
	ps[0].AllIn = true
	r := newRound(River, 20)
	assert.True(t, r.Complete(ps), "one actor facing no bet has nobody to bet against")

	ps[0].Placed = 100
	r.CurrentBet = 100
	assert.False(t, r.Complete(ps), "lone actor still owes the all-in amount")
}

func TestParseActionKind(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]ActionKind{
		"fold": Fold, "CHECK": Check, " call ": Call, "bet": Bet,
		"raise": Raise, "allin": AllIn, "all-in": AllIn, "all_in": AllIn,
	} {
		got, err := ParseActionKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseActionKind("post_big_blind")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
