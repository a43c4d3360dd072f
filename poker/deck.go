package poker

import (
	"errors"
	rand "math/rand/v2"
)

// ErrDeckExhausted is returned when drawing from an empty deck. A hand can
// never legitimately need more than 52 cards, so callers treat it as fatal.
var ErrDeckExhausted = errors.New("poker: deck exhausted")

// Deck is a standard 52-card deck. Cards are drawn from the end of the slice.
type Deck struct {
	cards []Card
}

// FullDeck returns the 52 cards in a fixed order.
func FullDeck() []Card {
	cards := make([]Card, 0, 52)
	for s := Clubs; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			cards = append(cards, NewCard(r, s))
		}
	}
	return cards
}

// NewDeck returns a deck shuffled with rng.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: FullDeck()}
	d.Shuffle(rng)
	return d
}

// NewStackedDeck returns an unshuffled deck whose first Draw yields top[0],
// then top[1] and so on. Used to replay known deals.
func NewStackedDeck(top ...Card) *Deck {
	cards := make([]Card, len(top))
	for i, c := range top {
		cards[len(top)-1-i] = c
	}
	return &Deck{cards: cards}
}

// Shuffle performs a Fisher-Yates shuffle of the remaining cards.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the last card.
func (d *Deck) Draw() (Card, error) {
	n := len(d.cards)
	if n == 0 {
		return 0, ErrDeckExhausted
	}
	c := d.cards[n-1]
	d.cards = d.cards[:n-1]
	return c, nil
}

// DrawN draws n cards in draw order. On exhaustion nothing is consumed.
func (d *Deck) DrawN(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrDeckExhausted
	}
	out := make([]Card, n)
	for i := range out {
		out[i], _ = d.Draw()
	}
	return out, nil
}

// Remaining returns how many cards are left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
