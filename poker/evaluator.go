package poker

import (
	"errors"
	"fmt"
	"sort"
)

// Category is the class of a five-card poker hand ordered from weakest to
// strongest.
type Category uint8

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Score ranks a hand as the tuple (category, t1..t5). Tiebreak ranks follow
// the category in significance order and unused slots are zero, so two
// scores compare lexicographically and equal scores split the pot.
type Score [6]uint8

var (
	ErrHandSize      = errors.New("poker: evaluate needs 5 to 7 cards")
	ErrDuplicateCard = errors.New("poker: duplicate card")
)

func (s Score) Category() Category { return Category(s[0]) }

// Tiebreak returns the significant tiebreak ranks.
func (s Score) Tiebreak() []Rank {
	var out []Rank
	for _, v := range s[1:] {
		if v == 0 {
			break
		}
		out = append(out, Rank(v))
	}
	return out
}

// Compare returns 1 if s beats o, -1 if o beats s and 0 on a tie.
func (s Score) Compare(o Score) int {
	for i := range s {
		switch {
		case s[i] > o[i]:
			return 1
		case s[i] < o[i]:
			return -1
		}
	}
	return 0
}

func (s Score) String() string {
	t := s.Tiebreak()
	if len(t) == 0 {
		return s.Category().String()
	}
	switch s.Category() {
	case HighCard:
		return fmt.Sprintf("High Card, %s", t[0].Name())
	case Pair:
		return fmt.Sprintf("Pair of %s", t[0].plural())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", t[0].plural(), t[1].plural())
	case ThreeOfAKind:
		return fmt.Sprintf("Three %s", t[0].plural())
	case Straight:
		return fmt.Sprintf("Straight, %s high", t[0].Name())
	case Flush:
		return fmt.Sprintf("Flush, %s high", t[0].Name())
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", t[0].plural(), t[1].plural())
	case FourOfAKind:
		return fmt.Sprintf("Four %s", t[0].plural())
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s high", t[0].Name())
	default:
		return s.Category().String()
	}
}

// Evaluate scores the best five-card hand that can be made from 5, 6 or 7
// distinct cards.
func Evaluate(cards ...Card) (Score, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Score{}, fmt.Errorf("%w: got %d", ErrHandSize, len(cards))
	}
	var seen uint64
	for _, c := range cards {
		if !c.Valid() {
			return Score{}, ErrInvalidCard
		}
		bit := uint64(1) << c.Index()
		if seen&bit != 0 {
			return Score{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen |= bit
	}

	var best Score
	var five [5]Card
	n := len(cards)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five = [5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						if s := scoreFive(five); s.Compare(best) > 0 {
							best = s
						}
					}
				}
			}
		}
	}
	return best, nil
}

// MustEvaluate panics on invalid input.
func MustEvaluate(cards ...Card) Score {
	s, err := Evaluate(cards...)
	if err != nil {
		panic(err)
	}
	return s
}

type rankGroup struct {
	rank  Rank
	count int
}

func scoreFive(cards [5]Card) Score {
	var counts [Ace + 1]int
	flush := true
	for i, c := range cards {
		counts[c.Rank()]++
		if i > 0 && c.Suit() != cards[0].Suit() {
			flush = false
		}
	}

	groups := make([]rankGroup, 0, 5)
	for r := Ace; r >= Two; r-- {
		if counts[r] > 0 {
			groups = append(groups, rankGroup{rank: r, count: counts[r]})
		}
	}
	// Larger groups first, then higher rank. This is also tiebreak order.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})

	var s Score
	straightHigh := Rank(0)
	if len(groups) == 5 {
		hi, lo := groups[0].rank, groups[4].rank
		switch {
		case hi-lo == 4:
			straightHigh = hi
		case hi == Ace && groups[1].rank == Five:
			straightHigh = Five
		}
	}

	switch {
	case straightHigh != 0 && flush:
		if straightHigh == Ace {
			s[0] = uint8(RoyalFlush)
		} else {
			s[0] = uint8(StraightFlush)
		}
		s[1] = uint8(straightHigh)
		return s
	case groups[0].count == 4:
		s[0] = uint8(FourOfAKind)
	case groups[0].count == 3 && groups[1].count == 2:
		s[0] = uint8(FullHouse)
	case flush:
		s[0] = uint8(Flush)
	case straightHigh != 0:
		s[0] = uint8(Straight)
		s[1] = uint8(straightHigh)
		return s
	case groups[0].count == 3:
		s[0] = uint8(ThreeOfAKind)
	case groups[0].count == 2 && groups[1].count == 2:
		s[0] = uint8(TwoPair)
	case groups[0].count == 2:
		s[0] = uint8(Pair)
	default:
		s[0] = uint8(HighCard)
	}
	for i, g := range groups {
		s[i+1] = uint8(g.rank)
	}
	return s
}
