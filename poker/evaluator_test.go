package poker

import (
	"testing"

	ph "github.com/paulhankin/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/randutil"
)

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		cards string
		want  Category
		desc  string
	}{
		{"royal flush", "As Ks Qs Js Ts 2d 3c", RoyalFlush, "Royal Flush"},
		{"straight flush", "9h 8h 7h 6h 5h Ad Ac", StraightFlush, "Straight Flush, Nine high"},
		{"steel wheel", "Ad 2d 3d 4d 5d Kc Qh", StraightFlush, "Straight Flush, Five high"},
		{"quads", "Kc Kd Kh Ks 2c 3d 4h", FourOfAKind, "Four Kings"},
		{"full house", "Qc Qd Qh 5s 5c 2d 3h", FullHouse, "Full House, Queens full of Fives"},
		{"flush", "Ac 9c 7c 4c 2c Kd Qh", Flush, "Flush, Ace high"},
		{"straight", "Tc 9d 8h 7s 6c 2d 2h", Straight, "Straight, Ten high"},
		{"wheel", "Ac 2d 3h 4s 5c Kd Qh", Straight, "Straight, Five high"},
		{"trips", "7c 7d 7h Ks 2c 3d 9h", ThreeOfAKind, "Three Sevens"},
		{"two pair", "Jc Jd 4h 4s Ac 3d 9h", TwoPair, "Two Pair, Jacks and Fours"},
		{"pair", "6c 6d Ah Ks 9c 3d 2h", Pair, "Pair of Sixes"},
		{"high card", "Ac Jd 9h 7s 5c 3d 2h", HighCard, "High Card, Ace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Evaluate(MustParseCards(tt.cards)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Category())
			assert.Equal(t, tt.desc, s.String())
		})
	}
}

func TestCategoryOrdering(t *testing.T) {
	t.Parallel()
	// Strongest first.
	hands := []string{
		"As Ks Qs Js Ts",
		"9h 8h 7h 6h 5h",
		"Kc Kd Kh Ks 2c",
		"Qc Qd Qh 5s 5c",
		"Ac 9c 7c 4c 2c",
		"Tc 9d 8h 7s 6c",
		"7c 7d 7h Ks 2c",
		"Jc Jd 4h 4s Ac",
		"6c 6d Ah Ks 9c",
		"Ac Jd 9h 7s 5c",
	}
	for i := 0; i+1 < len(hands); i++ {
		a := MustEvaluate(MustParseCards(hands[i])...)
		b := MustEvaluate(MustParseCards(hands[i+1])...)
		assert.Equal(t, 1, a.Compare(b), "%s should beat %s", hands[i], hands[i+1])
		assert.Equal(t, -1, b.Compare(a))
	}
}

func TestWheelIsLowestStraight(t *testing.T) {
	t.Parallel()
	wheel := MustEvaluate(MustParseCards("Ac 2d 3h 4s 5c")...)
	six := MustEvaluate(MustParseCards("2c 3d 4h 5s 6c")...)
	assert.Equal(t, -1, wheel.Compare(six))
	assert.Equal(t, []Rank{Five}, wheel.Tiebreak())

	// A-K-Q-J-T is a broadway straight, not a wrap-around.
	broadway := MustEvaluate(MustParseCards("Ac Kd Qh Js Tc")...)
	assert.Equal(t, []Rank{Ace}, broadway.Tiebreak())
	wrap := MustEvaluate(MustParseCards("Qc Kd Ah 2s 3c")...)
	assert.Equal(t, HighCard, wrap.Category())
}

func TestKickersDecide(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		better string
		worse  string
	}{
		{"pair kicker", "Ac Ad Kh 5s 3c", "As Ah Qh 5d 3d"},
		{"third kicker", "9c 9d Ah Ks 4c", "9h 9s Ac Kd 3c"},
		{"two pair kicker", "Jc Jd 4h 4s Ac", "Jh Js 4c 4d Kc"},
		{"two pair high pair", "Qc Qd 2h 2s 3c", "Jh Js Tc Td Ac"},
		{"full house trips first", "3c 3d 3h 2s 2c", "2h 2d 2s Ac Ad"},
		{"flush fifth card", "Ac Jc 9c 7c 5c", "Ad Jd 9d 7d 4d"},
		{"quads kicker", "8c 8d 8h 8s Ac", "8c 8d 8h 8s Kc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := MustEvaluate(MustParseCards(tt.better)...)
			w := MustEvaluate(MustParseCards(tt.worse)...)
			assert.Equal(t, 1, b.Compare(w))
		})
	}
}

func TestEqualHandsSplit(t *testing.T) {
	t.Parallel()
	board := "Ac Kd Qh Js 9c"
	a := MustEvaluate(MustParseCards(board + " 2c 3d")...)
	b := MustEvaluate(MustParseCards(board + " 2h 3s")...)
	assert.Equal(t, 0, a.Compare(b))
	assert.Equal(t, a, b)
}

func TestSevenCardPicksBestSubset(t *testing.T) {
	t.Parallel()
	// Six spades: the best flush ignores the lowest spade.
	s := MustEvaluate(MustParseCards("As Qs 9s 7s 5s 2s Kd")...)
	assert.Equal(t, Flush, s.Category())
	assert.Equal(t, []Rank{Ace, Queen, Nine, Seven, Five}, s.Tiebreak())

	// Two trips make a full house with the higher trips on top.
	s = MustEvaluate(MustParseCards("9c 9d 9h 4s 4c 4d 2h")...)
	assert.Equal(t, FullHouse, s.Category())
	assert.Equal(t, []Rank{Nine, Four}, s.Tiebreak())

	// Six card input.
	s = MustEvaluate(MustParseCards("Tc 9d 8h 7s 6c 5d")...)
	assert.Equal(t, Straight, s.Category())
	assert.Equal(t, []Rank{Ten}, s.Tiebreak())
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	t.Parallel()
	_, err := Evaluate(MustParseCards("As Ks Qs Js")...)
	assert.ErrorIs(t, err, ErrHandSize)

	_, err = Evaluate(MustParseCards("As Ks Qs Js Ts 9s 8s 7s")...)
	assert.ErrorIs(t, err, ErrHandSize)

	_, err = Evaluate(MustParseCards("As As Qs Js Ts")...)
	assert.ErrorIs(t, err, ErrDuplicateCard)

	_, err = Evaluate(NewCard(Ace, Spades), 0, 1, 2, 3)
	assert.ErrorIs(t, err, ErrInvalidCard)
}

func toReference(c Card) ph.Card {
	suits := [...]ph.Suit{ph.Club, ph.Diamond, ph.Heart, ph.Spade}
	r := ph.Rank(c.Rank())
	if c.Rank() == Ace {
		r = 1
	}
	pc, err := ph.MakeCard(suits[c.Suit()], r)
	if err != nil {
		panic(err)
	}
	return pc
}

// The tuple evaluator must order random seven-card hands exactly like an
// independent lookup-table evaluator.
func TestEvaluateAgreesWithReference(t *testing.T) {
	t.Parallel()
	rng := randutil.New(2024)
	for i := 0; i < 2000; i++ {
		cards, err := NewDeck(rng).DrawN(14)
		require.NoError(t, err)
		a, b := cards[:7], cards[7:]

		var ra, rb [7]ph.Card
		for j := range 7 {
			ra[j] = toReference(a[j])
			rb[j] = toReference(b[j])
		}
		want := 0
		switch ea, eb := ph.Eval7(&ra), ph.Eval7(&rb); {
		case ea > eb:
			want = 1
		case ea < eb:
			want = -1
		}
		got := MustEvaluate(a...).Compare(MustEvaluate(b...))
		require.Equal(t, want, got, "%s vs %s", FormatCards(a), FormatCards(b))
	}
}

func BenchmarkEvaluate7(b *testing.B) {
	cards := MustParseCards("As Kd 9h 9c 4s 3d 2h")
	b.ReportAllocs()
	for b.Loop() {
		_, _ = Evaluate(cards...)
	}
}
