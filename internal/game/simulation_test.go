package game

import (
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/randutil"
)

// Random legal play must always pay out exactly what went in.
func TestRandomHandsConserveChips(t *testing.T) {
	t.Parallel()
	rng := randutil.New(1234)
	clock := quartz.NewMock(t)

	for i := 0; i < 500; i++ {
		n := 2 + rng.IntN(8)
		entrants := make([]Entrant, n)
		before := 0
		for j := range entrants {
			stack := 1 + rng.IntN(2000)
			entrants[j] = Entrant{Seat: j * 2, Stack: stack}
			before += stack
		}
		cfg := Config{SmallBlind: 5, BigBlind: 10, RakeBasisPoints: rng.IntN(1000), RakeCap: rng.IntN(50)}
		button := entrants[rng.IntN(n)].Seat

		h, err := NewHand(cfg, entrants, button, WithRNG(randutil.New(int64(i))), WithClock(clock))
		require.NoError(t, err)

		for steps := 0; h.Status() == StatusRunning; steps++ {
			require.Less(t, steps, 500, "hand %d did not finish", i)
			seat := h.ToAct()
			legal := h.Legal(seat)
			require.NotEmpty(t, legal, "hand %d seat %d has no legal action", i, seat)

			la := legal[rng.IntN(len(legal))]
			a := Action{Kind: la.Kind}
			if la.Kind == Bet || la.Kind == Raise {
				a.Amount = la.Min + rng.IntN(la.Max-la.Min+1)
			}
			if rng.IntN(20) == 0 {
				require.NoError(t, h.Timeout(seat))
				continue
			}
			require.NoError(t, h.Apply(seat, a), "hand %d", i)
		}

		require.Equal(t, StatusPaid, h.Status())
		after := h.Result().Rake
		for _, p := range h.Players() {
			require.GreaterOrEqual(t, p.Stack, 0)
			after += p.Stack
		}
		require.Equal(t, before, after, "hand %d leaked chips", i)
		require.Equal(t, h.Log().Total(), PotTotal(h.Result().Pots))
	}
}
