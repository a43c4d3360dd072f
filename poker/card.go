// Package poker provides playing cards, a shuffled deck and a Texas Hold'em
// hand evaluator.
package poker

import (
	"errors"
	"fmt"
	"strings"
)

// Suit of a card.
type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

const suitChars = "cdhs"

func (s Suit) String() string {
	if s > Spades {
		return "?"
	}
	return string(suitChars[s])
}

// Symbol returns the unicode suit glyph.
func (s Suit) Symbol() string {
	switch s {
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	case Hearts:
		return "♥"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// IsRed reports whether the suit is hearts or diamonds.
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank of a card. Aces are high (14); the wheel is handled by the evaluator.
type Rank uint8

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankChars = "23456789TJQKA"

func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	return string(rankChars[r-Two])
}

// Name returns the long English name, e.g. "King".
func (r Rank) Name() string {
	names := [...]string{"Two", "Three", "Four", "Five", "Six", "Seven", "Eight",
		"Nine", "Ten", "Jack", "Queen", "King", "Ace"}
	if r < Two || r > Ace {
		return "Unknown"
	}
	return names[r-Two]
}

// plural returns the English plural of the rank name.
func (r Rank) plural() string {
	if r == Six {
		return "Sixes"
	}
	return r.Name() + "s"
}

// Card packs rank and suit into one byte. The zero value is not a valid card.
type Card uint8

var (
	ErrInvalidCard = errors.New("poker: invalid card")
)

// NewCard builds a card from rank and suit.
func NewCard(r Rank, s Suit) Card {
	return Card(uint8(r)<<2 | uint8(s))
}

func (c Card) Rank() Rank { return Rank(c >> 2) }
func (c Card) Suit() Suit { return Suit(c & 3) }

// Valid reports whether the card is one of the 52 real cards.
func (c Card) Valid() bool {
	r := c.Rank()
	return r >= Two && r <= Ace
}

// Index returns a dense 0..51 index, useful for bitsets.
func (c Card) Index() int {
	return int(c.Rank()-Two)*4 + int(c.Suit())
}

func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return c.Rank().String() + c.Suit().String()
}

// MarshalText encodes the card as "As", "Td", ...
func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidCard
	}
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a two character card such as "As", "td" or "9H".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	ri := strings.IndexByte(rankChars, upper(s[0]))
	si := strings.IndexByte(suitChars, lower(s[1]))
	if ri < 0 || si < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	return NewCard(Two+Rank(ri), Suit(si)), nil
}

// ParseCards parses cards separated by whitespace or commas, or packed
// together ("AsKd" or "As Kd").
func ParseCards(s string) ([]Card, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	var cards []Card
	for _, f := range fields {
		if len(f)%2 != 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCard, f)
		}
		for i := 0; i < len(f); i += 2 {
			c, err := ParseCard(f[i : i+2])
			if err != nil {
				return nil, err
			}
			cards = append(cards, c)
		}
	}
	return cards, nil
}

// MustParseCards is ParseCards for literals in tests and fixtures.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// FormatCards renders cards space separated.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}
